package video

import "vectrexcore/internal/debug"

// cyclesPerFrame is 1.5 MHz / 50 Hz.
const cyclesPerFrame = 30000

// PortSource is the subset of the VIA the video subsystem reads every
// cycle: the composite ports and the CA2/CB2 handshake outputs that carry
// ZERO and BLANK.
type PortSource interface {
	PortA() uint8
	PortB() uint8
	CA2() uint8
	CB2() uint8
}

// JoystickMux receives the currently selected MUX channel and DAC value so
// it can run its own comparator against the ramping DAC.
type JoystickMux interface {
	ProcessMux(muxChan uint8, dac uint8)
}

// VectorVideo models the DAC, multiplexer, X/Y integrators, Z
// sample-and-hold, and drives the phosphor ring and the electron gun
// position.
type VectorVideo struct {
	via      PortSource
	joystick JoystickMux

	xIntegrator uint8
	yHold       uint8
	zHold       uint8
	xyOffset    uint8

	gunX, gunY int32

	cycleInFrame int

	phosphors *Phosphors
	logger    *debug.Logger
}

// New builds a VectorVideo wired to via (for port/handshake reads) and
// joystick (for MUX channel 0/1 comparator feed). logger may be nil.
func New(via PortSource, joystick JoystickMux, logger *debug.Logger) *VectorVideo {
	return &VectorVideo{
		via:       via,
		joystick:  joystick,
		phosphors: NewPhosphors(),
		logger:    logger,
	}
}

// Phosphors exposes the dot ring for the renderer side.
func (v *VectorVideo) Phosphors() *Phosphors { return v.phosphors }

// GunPosition exposes the current gun coordinates, mostly for tests and
// savestate.
func (v *VectorVideo) GunPosition() (x, y int32) { return v.gunX, v.gunY }

// State is the gob-serializable snapshot of VectorVideo's own scalar
// state; the Phosphors ring is snapshotted separately via its own State.
type State struct {
	XIntegrator, YHold, ZHold, XYOffset uint8
	GunX, GunY                          int32
	CycleInFrame                        int
}

// Snapshot captures the scalar state for savestate.
func (v *VectorVideo) Snapshot() State {
	return State{
		XIntegrator: v.xIntegrator, YHold: v.yHold, ZHold: v.zHold, XYOffset: v.xyOffset,
		GunX: v.gunX, GunY: v.gunY,
		CycleInFrame: v.cycleInFrame,
	}
}

// Restore replaces the scalar state from a snapshot.
func (v *VectorVideo) Restore(s State) {
	v.xIntegrator, v.yHold, v.zHold, v.xyOffset = s.XIntegrator, s.YHold, s.ZHold, s.XYOffset
	v.gunX, v.gunY = s.GunX, s.GunY
	v.cycleInFrame = s.CycleInFrame
}

// EmulateCycle advances the video subsystem by one CPU cycle and reports
// whether this cycle completed a frame (cycleInFrame wrapped past 30000).
func (v *VectorVideo) EmulateCycle() bool {
	portB := v.via.PortB()
	portA := v.via.PortA()

	ramp := portB&0x80 == 0
	zero := v.via.CA2() == 0
	blank := v.via.CB2() == 0

	dac := portA ^ 0x80
	v.xIntegrator = dac

	muxEnabled := portB&0x01 == 0
	muxChan := (portB >> 1) & 0x03
	if muxEnabled {
		switch muxChan {
		case 0:
			v.yHold = dac
		case 1:
			v.xyOffset = dac
		case 2:
			if dac > 128 {
				v.zHold = dac - 128
			} else {
				v.zHold = 0
			}
		case 3:
			// Audio channel; the PSG reads Port A directly, not through here.
		}
	}
	v.joystick.ProcessMux(muxChan, dac)

	var dX, dY int32
	switch {
	case zero:
		dX = -v.gunX
		dY = -v.gunY
	case ramp:
		dX = int32(int8(v.xIntegrator)) - int32(int8(v.xyOffset))
		dY = int32(int8(v.yHold)) - int32(int8(v.xyOffset))
	}

	v.phosphors.Move(&v.gunX, &v.gunY, dX, dY, v.zHold, !blank)

	v.cycleInFrame++
	if v.cycleInFrame >= cyclesPerFrame {
		v.cycleInFrame = 0
		v.logger.LogVideo(debug.LogLevelTrace, "frame done", nil)
		return true
	}
	return false
}
