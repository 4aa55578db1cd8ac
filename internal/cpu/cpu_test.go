package cpu

import "testing"

type fakeBus struct {
	mem [65536]uint8
}

func (b *fakeBus) Read(addr uint16) uint8         { return b.mem[addr] }
func (b *fakeBus) Write(addr uint16, value uint8) { b.mem[addr] = value }

func newFakeBus() *fakeBus {
	b := &fakeBus{}
	b.mem[vectorReset] = 0x80
	b.mem[vectorReset+1] = 0x00
	b.mem[vectorIRQ] = 0x90
	b.mem[vectorIRQ+1] = 0x00
	return b
}

func TestResetLoadsVector(t *testing.T) {
	s := NewStub(newFakeBus(), nil)
	s.Reset()
	if s.PC() != 0x8000 {
		t.Fatalf("PC after reset = %04X, want 8000", s.PC())
	}
}

func TestEmulateCycleAdvancesPC(t *testing.T) {
	s := NewStub(newFakeBus(), nil)
	s.Reset()
	s.EmulateCycle()
	if s.PC() != 0x8001 {
		t.Fatalf("PC after one cycle = %04X, want 8001", s.PC())
	}
	if s.Cycles() != 1 {
		t.Fatalf("Cycles = %d, want 1", s.Cycles())
	}
}

func TestIRQRedirectsOnce(t *testing.T) {
	s := NewStub(newFakeBus(), nil)
	s.Reset()
	s.SignalIRQ(true)
	s.EmulateCycle()
	if s.PC() != 0x9000 {
		t.Fatalf("PC after IRQ entry = %04X, want 9000", s.PC())
	}
	before := s.PC()
	s.EmulateCycle() // IRQ mask now set, line still asserted: no re-entry
	if s.PC() != before+1 {
		t.Fatalf("PC after second cycle = %04X, want %04X (normal advance, no re-entry)", s.PC(), before+1)
	}
}

func TestIRQIgnoredWhenMasked(t *testing.T) {
	s := NewStub(newFakeBus(), nil)
	s.Reset()
	s.cc |= ccIRQMask
	s.SignalIRQ(true)
	s.EmulateCycle()
	if s.PC() != 0x8001 {
		t.Fatalf("PC with IRQ masked = %04X, want 8001 (no redirect)", s.PC())
	}
}
