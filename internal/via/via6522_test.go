package via

import "testing"

type fakeIRQSink struct {
	level bool
	calls int
}

func (f *fakeIRQSink) SignalIRQ(level bool) {
	f.level = level
	f.calls++
}

func newTestVia() (*Via6522, *fakeIRQSink) {
	sink := &fakeIRQSink{}
	v := New(sink, nil)
	v.Reset()
	return v, sink
}

func TestTimer1OneShot(t *testing.T) {
	v, _ := newTestVia()
	v.Write(11, 0x00) // ACR: T1 one-shot, no PB7
	v.Write(4, 0x05)  // T1 latch low
	v.Write(5, 0x00)  // T1 latch high; starts the timer

	for i := 0; i < 6; i++ {
		v.EmulateCycle()
		if v.IFR()&bitT1 != 0 {
			t.Fatalf("T1 IFR set too early, at cycle %d", i+1)
		}
	}
	v.EmulateCycle() // 7th cycle
	if v.IFR()&bitT1 == 0 {
		t.Fatalf("T1 IFR not set after 7 cycles")
	}
	v.Read(4) // clears T1 IFR
	if v.IFR()&bitT1 != 0 {
		t.Fatalf("reading reg 4 did not clear T1 IFR")
	}
}

func TestTimer1FreeRunPB7Toggle(t *testing.T) {
	v, _ := newTestVia()
	v.Write(11, 0xC0) // ACR: free-run, PB7 mode
	v.Write(4, 0x02)
	v.Write(5, 0x00)

	var toggles int
	last := v.PB7()
	for i := 0; i < 40; i++ {
		v.EmulateCycle()
		if cur := v.PB7(); cur != last {
			toggles++
			last = cur
		}
	}
	if toggles == 0 {
		t.Fatal("PB7 never toggled in free-run mode")
	}
	if v.IFR()&bitT1 == 0 {
		t.Fatal("T1 IFR never set in free-run mode")
	}
}

func TestShiftOutUnderTimer2(t *testing.T) {
	v, _ := newTestVia()
	v.Write(11, 0x14) // ACR: srMode=5 (101 at bits 4-2), rest default
	v.Write(8, 0x01)  // T2 low latch
	v.Write(10, 0xA5) // SR value, starts shifting

	var shiftedBits []uint8
	for i := 0; i < 2000 && len(shiftedBits) < 8; i++ {
		beforeCounter := v.srCounter
		v.EmulateCycle()
		if v.srCounter != beforeCounter {
			shiftedBits = append(shiftedBits, v.cb2)
		}
	}
	want := []uint8{1, 0, 1, 0, 0, 1, 0, 1}
	if len(shiftedBits) != 8 {
		t.Fatalf("expected 8 shifted bits, got %d: %v", len(shiftedBits), shiftedBits)
	}
	for i, b := range want {
		if shiftedBits[i] != b {
			t.Fatalf("bit %d = %d, want %d (full: %v)", i, shiftedBits[i], b, shiftedBits)
		}
	}
	if v.IFR()&bitSR == 0 {
		t.Fatal("SR IFR not set after 8 shifts")
	}
}

func TestIFRBit7Invariant(t *testing.T) {
	v, _ := newTestVia()
	v.Write(14, 0x80|bitT1) // enable T1 interrupt
	v.Write(11, 0x00)
	v.Write(4, 0x01)
	v.Write(5, 0x00)
	for i := 0; i < 10; i++ {
		v.EmulateCycle()
		want := (v.IFR() & v.IER() & 0x7F) != 0
		got := v.IFR()&bitIRQ != 0
		if got != want {
			t.Fatalf("cycle %d: IFR bit7=%v, want %v (IFR=%02X IER=%02X)", i, got, want, v.IFR(), v.IER())
		}
	}
}

func TestRegisterRoundTrips(t *testing.T) {
	v, _ := newTestVia()
	v.Write(3, 0xAA) // DDRA
	if got := v.Read(3); got != 0xAA {
		t.Fatalf("DDRA round trip: got 0x%02X", got)
	}
	v.Write(2, 0x55) // DDRB
	if got := v.Read(2); got != 0x55 {
		t.Fatalf("DDRB round trip: got 0x%02X", got)
	}
	v.Write(11, 0x3C)
	if got := v.Read(11); got != 0x3C {
		t.Fatalf("ACR round trip: got 0x%02X", got)
	}
	v.Write(12, 0x3C)
	if got := v.Read(12); got != 0x3C {
		t.Fatalf("PCR round trip: got 0x%02X", got)
	}
	v.Write(14, 0x80|bitT1|bitCA1)
	if got := v.Read(14); got != (bitIRQ | bitT1 | bitCA1) {
		t.Fatalf("IER round trip: got 0x%02X", got)
	}
}
