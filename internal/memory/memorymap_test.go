package memory

import "testing"

// fakeVIA is a minimal Chip stand-in used to test MemoryMap region wiring
// without depending on the via package (which itself depends on memory
// only at the Machine composition level, not here).
type fakeVIA struct {
	regs [16]uint8
}

func (v *fakeVIA) Read(addr uint16) uint8 {
	return v.regs[addr&0x0F]
}

func (v *fakeVIA) Write(addr uint16, value uint8) {
	v.regs[addr&0x0F] = value
}

func newTestMap(t *testing.T) (*MemoryMap, *fakeVIA) {
	t.Helper()
	m := New(nil)
	via := &fakeVIA{}
	sysROM := make([]uint8, SystemROMSize)
	for i := range sysROM {
		sysROM[i] = uint8(i)
	}
	if err := m.Populate(nil, sysROM, via); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	return m, via
}

func TestEveryAddressHasAChip(t *testing.T) {
	m, _ := newTestMap(t)
	for i := range m.table {
		if m.table[i] == nil {
			t.Fatalf("address 0x%04X has no chip", i)
		}
	}
}

func TestSystemROMReadback(t *testing.T) {
	m, _ := newTestMap(t)
	for addr := 0xE000; addr <= 0xFFFF; addr++ {
		want := uint8(addr - 0xE000)
		got := m.Read(uint16(addr))
		if got != want {
			t.Fatalf("addr 0x%04X: got 0x%02X want 0x%02X", addr, got, want)
		}
	}
}

func TestUnconnectedRegionReadsZero(t *testing.T) {
	m, _ := newTestMap(t)
	if got := m.Read(0x9000); got != 0 {
		t.Fatalf("unconnected read = 0x%02X, want 0", got)
	}
	m.Write(0x9000, 0xFF)
	if got := m.Read(0x9000); got != 0 {
		t.Fatalf("unconnected region mutated by write: 0x%02X", got)
	}
}

func TestRAMShadowing(t *testing.T) {
	m, _ := newTestMap(t)
	m.Write(0xC800, 0x42)
	if got := m.Read(0xCC00); got != 0x42 { // 0xCC00 & 0x3FF == 0 too
		t.Fatalf("shadowed RAM read = 0x%02X, want 0x42", got)
	}
}

func TestCartridgeLoadReplacesRange(t *testing.T) {
	m, _ := newTestMap(t)
	rom := []uint8{0xAA, 0xBB, 0xCC}
	if err := m.LoadCartridge(rom); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if got := m.Read(0x0001); got != 0xBB {
		t.Fatalf("cartridge read = 0x%02X, want 0xBB", got)
	}
	// Past the cartridge's own length but still in [0,0x7FFF]: unconnected.
	if got := m.Read(0x0010); got != 0 {
		t.Fatalf("beyond cartridge read = 0x%02X, want 0", got)
	}
}

func TestOverlapAndRegion(t *testing.T) {
	m, via := newTestMap(t)
	// RAM holds 0xAA at the shadowed offset 0; VIA register 0 reads 0x0F.
	m.Write(0xC800, 0xAA)
	via.regs[0] = 0x0F

	got := m.Read(0xD800)
	if want := uint8(0xAA & 0x0F); got != want {
		t.Fatalf("overlap read = 0x%02X, want 0x%02X", got, want)
	}

	m.Write(0xD800, 0x55)
	if got := m.Read(0xC800); got != 0x55 {
		t.Fatalf("overlap write did not reach RAM: 0x%02X", got)
	}
	if via.regs[0] != 0x55 {
		t.Fatalf("overlap write did not reach VIA: 0x%02X", via.regs[0])
	}
}

func TestSystemROMSizeValidation(t *testing.T) {
	m := New(nil)
	err := m.Populate(nil, make([]uint8, 100), &fakeVIA{})
	if err == nil {
		t.Fatal("expected error for undersized system ROM")
	}
	var cfgErr *ConfigError
	if !asConfigError(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
	_ = m
}

func asConfigError(err error, target **ConfigError) bool {
	if ce, ok := err.(*ConfigError); ok {
		*target = ce
		return true
	}
	return false
}
