package video

import "testing"

type fakePorts struct {
	portA, portB uint8
	ca2, cb2     uint8
}

func (f *fakePorts) PortA() uint8 { return f.portA }
func (f *fakePorts) PortB() uint8 { return f.portB }
func (f *fakePorts) CA2() uint8   { return f.ca2 }
func (f *fakePorts) CB2() uint8   { return f.cb2 }

type fakeJoystickMux struct {
	lastChan uint8
	lastDAC  uint8
	calls    int
}

func (f *fakeJoystickMux) ProcessMux(muxChan, dac uint8) {
	f.lastChan = muxChan
	f.lastDAC = dac
	f.calls++
}

func TestFrameDoneEveryThirtyThousandCycles(t *testing.T) {
	ports := &fakePorts{cb2: 0 /* BLANK held active so no dots accumulate */}
	v := New(ports, &fakeJoystickMux{}, nil)

	var frames int
	for i := 0; i < cyclesPerFrame*3; i++ {
		if v.EmulateCycle() {
			frames++
			if (i+1)%cyclesPerFrame != 0 {
				t.Fatalf("frame done at cycle %d, not a multiple of %d", i+1, cyclesPerFrame)
			}
		}
	}
	if frames != 3 {
		t.Fatalf("got %d frames in %d cycles, want 3", frames, cyclesPerFrame*3)
	}
}

func TestZeroAndRampVector(t *testing.T) {
	ports := &fakePorts{}
	jm := &fakeJoystickMux{}
	v := New(ports, jm, nil)

	// ZERO: CA2=0 for one cycle, recenters the gun regardless of its
	// (already zero) starting position.
	ports.ca2 = 0
	ports.cb2 = 0 // BLANK asserted (active-low) during the recenter cycle
	v.EmulateCycle()
	gx, gy := v.GunPosition()
	if gx != 0 || gy != 0 {
		t.Fatalf("gun after ZERO = (%d,%d), want (0,0)", gx, gy)
	}

	// Release ZERO; set RAMP active (portB bit7=0); select MUX channel 1
	// (xyOffset) with Port A=0x80 so dac=0x00, latching xyOffset=0.
	ports.ca2 = 1
	ports.portB = 0x02 // muxEnabled (bit0=0), muxChan=(0x02>>1)&3=1
	ports.portA = 0x80
	v.EmulateCycle()

	// Select MUX channel 0 (yHold) with Port A=0x60 so dac=0xE0 (-32 as
	// int8), latching yHold=0xE0.
	ports.portB = 0x00 // muxChan=0
	ports.portA = 0x60
	v.EmulateCycle()

	// Now drive Port A=0xA0 (dac=+32) with RAMP engaged, MUX disabled (so
	// yHold/xyOffset from the previous two cycles survive untouched), and
	// BLANK released; xIntegrator updates to dac every cycle regardless.
	ports.portB = 0x01
	ports.portA = 0xA0
	ports.cb2 = 1 // BLANK released (active-low line driven high)
	gxBefore, gyBefore := v.GunPosition()
	v.EmulateCycle()
	gxAfter, gyAfter := v.GunPosition()

	if dx := gxAfter - gxBefore; dx != 32 {
		t.Fatalf("gunX delta = %d, want +32", dx)
	}
	if dy := gyAfter - gyBefore; dy != -32 {
		t.Fatalf("gunY delta = %d, want -32", dy)
	}

	add := v.Phosphors().Add()
	if add == 0 {
		t.Fatal("no dot appended despite BLANK released")
	}
	dot := v.Phosphors().DotAt(add - 1)
	if !dot.IsStart {
		t.Fatal("first dot after a blanked stretch should have IsStart=true")
	}
}

func TestJoystickMuxFedEveryCycle(t *testing.T) {
	ports := &fakePorts{portB: 0x02, portA: 0x55}
	jm := &fakeJoystickMux{}
	v := New(ports, jm, nil)
	v.EmulateCycle()
	if jm.calls != 1 {
		t.Fatalf("ProcessMux called %d times, want 1", jm.calls)
	}
	if jm.lastChan != 1 {
		t.Fatalf("lastChan = %d, want 1", jm.lastChan)
	}
	if jm.lastDAC != (0x55 ^ 0x80) {
		t.Fatalf("lastDAC = %02X, want %02X", jm.lastDAC, 0x55^0x80)
	}
}
