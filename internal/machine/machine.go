// Package machine is the composition root: it wires MemoryMap, Via6522,
// VectorVideo, AY38912, and Joystick together and drives them in lock-step,
// one CPU cycle at a time, until the video subsystem reports a completed
// frame.
package machine

import (
	"vectrexcore/internal/clock"
	"vectrexcore/internal/cpu"
	"vectrexcore/internal/debug"
	"vectrexcore/internal/joystick"
	"vectrexcore/internal/memory"
	"vectrexcore/internal/psg"
	"vectrexcore/internal/via"
	"vectrexcore/internal/video"
)

// Frame is the non-blocking handoff the render thread polls for: the
// phosphor ring it should read from only, its own ready flag cleared on
// every successful GetFrame consume.
type Frame struct {
	Phosphors *video.Phosphors
}

// irqForwarder breaks the construction cycle between Via6522 (needs an
// IRQSink at New time) and cpu.Core (needs the populated MemoryMap, which
// needs the VIA): the VIA is built against this empty forwarder, and
// target is filled in once the CPU core exists.
type irqForwarder struct {
	target cpu.Core
}

func (f *irqForwarder) SignalIRQ(level bool) {
	if f.target != nil {
		f.target.SignalIRQ(level)
	}
}

// Machine owns every chip for the lifetime of an emulation session.
type Machine struct {
	memory   *memory.MemoryMap
	via      *via.Via6522
	video    *video.VectorVideo
	psg      *psg.AY38912
	joystick *joystick.Joystick
	cpu      cpu.Core

	throttle *clock.Throttle
	logger   *debug.Logger
	debugger *debug.AddressDebugger

	frameReady bool
}

// New builds a Machine around the given system ROM and audio sink (pass
// psg.NullSink{} when no audio device is available). The cartridge is
// loaded separately by Init, since it is optional and can change across a
// session without rebuilding the rest of the machine.
func New(systemROM []uint8, sink psg.Sink, logger *debug.Logger) (*Machine, error) {
	mm := memory.New(logger)

	irq := &irqForwarder{}
	viaChip := via.New(irq, logger)

	if err := mm.Populate(nil, systemROM, viaChip); err != nil {
		return nil, err
	}

	j := joystick.New()
	vid := video.New(viaChip, j, logger)
	p := psg.New(sink, logger)
	core := cpu.NewStub(mm, logger)
	irq.target = core

	return &Machine{
		memory:   mm,
		via:      viaChip,
		video:    vid,
		psg:      p,
		joystick: j,
		cpu:      core,
		throttle: clock.NewThrottle(),
		logger:   logger,
		debugger: debug.NewAddressDebugger(),
	}, nil
}

// Init optionally loads a cartridge (pass nil to leave the cartridge
// window unconnected) and resets the machine to its power-up state.
func (m *Machine) Init(cartridge []uint8) error {
	if len(cartridge) > 0 {
		if err := m.memory.LoadCartridge(cartridge); err != nil {
			return err
		}
	}
	m.Reset()
	return nil
}

// Reset clears VIA and CPU state, matching a power-on/reset button press.
// RAM and the phosphor ring are left untouched, mirroring real hardware
// (static RAM survives a reset; the CRT's phosphors keep glowing).
func (m *Machine) Reset() {
	m.via.Reset()
	m.cpu.Reset()
	m.logger.LogMachine(debug.LogLevelInfo, "reset", nil)
}

// tick runs one CPU cycle through every chip in the fixed order spec'd for
// the core: a breakpoint/step check against the CPU's current PC first (so
// a hit breaks before anything this cycle is driven), then joystick
// compare/button composition (so the VIA's port reads this cycle see last
// cycle's settled comparator result), then video, CPU, VIA, and finally PSG
// (skipped entirely in warp mode, since audio has no meaning faster than
// real time). broke reports whether the debugger halted execution before
// the cycle ran; frameDone is meaningless when broke is true.
func (m *Machine) tick(warpSpeed bool) (frameDone bool, broke bool) {
	if m.debugger.ShouldBreak(m.cpu.PC()) {
		return false, true
	}

	m.via.SetJoystickCompare(m.joystick.Compare())
	m.via.SetPortAButtons(m.joystick.ButtonState())

	frameDone = m.video.EmulateCycle()
	m.cpu.EmulateCycle()
	m.via.EmulateCycle()
	if !warpSpeed {
		m.psg.EmulateCycle(m.via)
	}
	return frameDone, false
}

// RunUntilFrame ticks the machine until the video subsystem signals a
// completed frame, then paces the emulation thread to 50 Hz (unless
// warpSpeed is set) via the shared Throttle before returning. If the
// debugger's ShouldBreak reports true first (a breakpoint hit, or any cycle
// while a single-step budget is armed), RunUntilFrame returns immediately
// with an incomplete frame and leaves the Throttle paused. Debugger().IsPaused()
// is true after a breakpoint hit or the step that exhausts the budget, and
// false after an earlier armed step.
func (m *Machine) RunUntilFrame(warpSpeed bool) Frame {
	m.throttle.SetWarp(warpSpeed)
	for {
		done, broke := m.tick(warpSpeed)
		if broke {
			m.throttle.Pause()
			return Frame{Phosphors: m.video.Phosphors()}
		}
		if done {
			break
		}
	}
	m.frameReady = true
	m.throttle.WaitForFrame()
	return Frame{Phosphors: m.video.Phosphors()}
}

// GetFrame is the renderer's non-blocking try-consume: it returns the
// current frame handoff and whether a new one has completed since the
// last call.
func (m *Machine) GetFrame() (Frame, bool) {
	if !m.frameReady {
		return Frame{}, false
	}
	m.frameReady = false
	return Frame{Phosphors: m.video.Phosphors()}, true
}

// Joystick exposes the joystick for keyDown/keyUp/touchPad input.
func (m *Machine) Joystick() *joystick.Joystick { return m.joystick }

// Debugger exposes the breakpoint/watch tracker for a host's debug UI or
// CLI flags. It is always present (never nil) and empty until the caller
// sets breakpoints or watches on it.
func (m *Machine) Debugger() *debug.AddressDebugger { return m.debugger }

// CPU exposes the active Core, mostly for tests and savestate.
func (m *Machine) CPU() cpu.Core { return m.cpu }

// SetPaused pauses or resumes the emulation thread via the shared
// condition variable.
func (m *Machine) SetPaused(paused bool) {
	if paused {
		m.throttle.Pause()
	} else {
		m.throttle.Resume()
	}
}

// IsPaused reports the current pause state.
func (m *Machine) IsPaused() bool { return m.throttle.IsPaused() }

// Stop requests the emulation thread exit at its next frame boundary.
func (m *Machine) Stop() { m.throttle.Stop() }

// ShouldExit reports whether Stop has been called.
func (m *Machine) ShouldExit() bool { return m.throttle.ShouldExit() }
