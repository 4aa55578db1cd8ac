package machine

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"vectrexcore/internal/cpu"
	"vectrexcore/internal/joystick"
	"vectrexcore/internal/memory"
	"vectrexcore/internal/psg"
	"vectrexcore/internal/via"
	"vectrexcore/internal/video"
)

func init() {
	gob.Register(memory.State{})
	gob.Register(via.State{})
	gob.Register(video.State{})
	gob.Register(video.PhosphorsState{})
	gob.Register(psg.State{})
	gob.Register(joystick.State{})
	gob.Register(cpu.State{})
}

// saveStateVersion guards against loading a save produced by an
// incompatible build.
const saveStateVersion uint16 = 1

// SaveState is the complete, gob-serializable snapshot of a Machine.
type SaveState struct {
	Version uint16

	Memory    memory.State
	VIA       via.State
	Video     video.State
	Phosphors video.PhosphorsState
	PSG       psg.State
	Joystick  joystick.State
	CPU       cpu.State

	FrameReady bool
}

// SaveState serializes the full machine state to a byte slice via
// encoding/gob, the same approach the teacher's emulator uses.
func (m *Machine) SaveState() ([]byte, error) {
	stub, ok := m.cpu.(*cpu.Stub)
	if !ok {
		return nil, fmt.Errorf("vectrex: savestate requires a *cpu.Stub core, got %T", m.cpu)
	}

	state := SaveState{
		Version:    saveStateVersion,
		Memory:     m.memory.Snapshot(),
		VIA:        m.via.Snapshot(),
		Video:      m.video.Snapshot(),
		Phosphors:  m.video.Phosphors().Snapshot(),
		PSG:        m.psg.Snapshot(),
		Joystick:   m.joystick.Snapshot(),
		CPU:        stub.Snapshot(),
		FrameReady: m.frameReady,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("vectrex: failed to encode save state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadState restores a Machine from a byte slice produced by SaveState.
func (m *Machine) LoadState(data []byte) error {
	stub, ok := m.cpu.(*cpu.Stub)
	if !ok {
		return fmt.Errorf("vectrex: load state requires a *cpu.Stub core, got %T", m.cpu)
	}

	var state SaveState
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&state); err != nil {
		return fmt.Errorf("vectrex: failed to decode save state: %w", err)
	}
	if state.Version != saveStateVersion {
		return fmt.Errorf("vectrex: unsupported save state version %d (expected %d)", state.Version, saveStateVersion)
	}

	m.memory.Restore(state.Memory)
	m.via.Restore(state.VIA)
	m.video.Restore(state.Video)
	m.video.Phosphors().Restore(state.Phosphors)
	m.psg.Restore(state.PSG)
	m.joystick.Restore(state.Joystick)
	stub.Restore(state.CPU)
	m.frameReady = state.FrameReady
	return nil
}
