package memory

import "vectrexcore/internal/debug"

// Address ranges of the flat 16-bit bus. Unchanged across resets once
// Populate has run.
const (
	cartridgeBase = 0x0000
	cartridgeEnd  = 0x7FFF
	ramBase       = 0xC800
	ramEnd        = 0xCFFF
	ramSize       = 0x0400
	viaBase       = 0xD000
	viaEnd        = 0xD7FF
	overlapBase   = 0xD800
	overlapEnd    = 0xDFFF
	sysROMBase    = 0xE000
	sysROMEnd     = 0xFFFF
)

// MemoryMap is a size-65536 table of chip references. Every address has
// exactly one entry; accesses never fail.
type MemoryMap struct {
	table [65536]Chip

	ram       *RAMChip
	cartridge Chip
	logger    *debug.Logger
}

// New builds a MemoryMap with every address unconnected. Call Populate
// before driving the machine.
func New(logger *debug.Logger) *MemoryMap {
	m := &MemoryMap{logger: logger}
	var unconnected Chip = UnconnectedChip{}
	for i := range m.table {
		m.table[i] = unconnected
	}
	return m
}

// Populate lays out the fixed chip regions described by the memory map:
// cartridge (or unconnected), shadowed 1 KiB work RAM, shadowed VIA,
// their Overlap-AND region, and the system ROM. via must already satisfy
// Chip (addr&0xF register decode is the VIA's own responsibility).
func (m *MemoryMap) Populate(cartridgeData []uint8, systemROM []uint8, via Chip) error {
	if err := validateSystemROM(systemROM); err != nil {
		return err
	}

	var unconnected Chip = UnconnectedChip{}
	for addr := cartridgeBase; addr <= cartridgeEnd; addr++ {
		m.table[addr] = unconnected
	}
	for addr := cartridgeEnd + 1; addr < ramBase; addr++ {
		m.table[addr] = unconnected
	}

	if len(cartridgeData) > 0 {
		if err := m.LoadCartridge(cartridgeData); err != nil {
			return err
		}
	}

	m.ram = NewRAMChip(ramSize)
	for addr := ramBase; addr <= ramEnd; addr++ {
		m.table[addr] = m.ram
	}

	for addr := viaBase; addr <= viaEnd; addr++ {
		m.table[addr] = via
	}

	overlap := NewOverlapAndChip(m.ram, via)
	for addr := overlapBase; addr <= overlapEnd; addr++ {
		m.table[addr] = overlap
	}

	rom := NewROMChip(systemROM)
	for addr := sysROMBase; addr <= sysROMEnd; addr++ {
		m.table[addr] = rom
	}

	return nil
}

// LoadCartridge installs a ROM chip over [0, len(data)), replacing
// whatever was previously mapped there; the remainder of the cartridge
// window up to 0x7FFF stays unconnected.
func (m *MemoryMap) LoadCartridge(data []uint8) error {
	if err := validateCartridge(data); err != nil {
		return err
	}
	rom := NewROMChip(data)
	m.cartridge = rom
	for addr := 0; addr < len(data); addr++ {
		m.table[addr] = rom
	}
	m.logger.LogMemoryf(debug.LogLevelInfo, "cartridge loaded: %d bytes", len(data))
	return nil
}

// Read dispatches a byte read through the table. Never fails: every
// address has an entry.
func (m *MemoryMap) Read(addr uint16) uint8 {
	return m.table[addr].Read(addr)
}

// Write dispatches a byte write through the table.
func (m *MemoryMap) Write(addr uint16, value uint8) {
	m.table[addr].Write(addr, value)
}

// RAM exposes the shadowed work RAM chip directly, for savestate
// snapshot/restore.
func (m *MemoryMap) RAM() *RAMChip {
	return m.ram
}

// State is the gob-serializable snapshot of the work RAM, for savestate.
// ROM and cartridge contents are not part of it; Restore leaves whatever
// ROM and cartridge are currently mapped in place, same as the teacher's
// MemoryState only covering WRAM.
type State struct {
	RAM []uint8
}

// Snapshot captures the work RAM for savestate.
func (m *MemoryMap) Snapshot() State {
	return State{RAM: m.ram.Snapshot()}
}

// Restore replaces the work RAM from a snapshot.
func (m *MemoryMap) Restore(s State) {
	m.ram.Restore(s.RAM)
}
