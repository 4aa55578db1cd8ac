// Package joystick models the Vectrex analog joystick: four directional
// switches, two analog axes read through the VIA's MUX/DAC comparator, and
// a four-button active-low nibble. The source exposes two joystick variants
// (digital-only and analog-axis); this one keeps the analog axes, since the
// video multiplexer's channels 0 and 1 require them to read position at all.
package joystick

// Direction and button identifiers for keyDown/keyUp.
const (
	DirUp = iota
	DirDown
	DirLeft
	DirRight
	Button1
	Button2
	Button3
	Button4
)

const (
	axisCenter = 128
	axisMin    = 0
	axisMax    = 255
)

// Joystick holds the four direction booleans, the two analog axes, the
// active-low button nibble, and the COMPARE signal derived from whichever
// MUX channel the VIA last selected.
type Joystick struct {
	up, down, left, right bool

	xDirection uint8
	yDirection uint8

	buttonState uint8 // active-low nibble, bits 0..3

	compare bool
}

// New returns a Joystick centered on both axes with no buttons held.
func New() *Joystick {
	return &Joystick{
		xDirection:  axisCenter,
		yDirection:  axisCenter,
		buttonState: 0x0F,
	}
}

// KeyDown marks a direction or button as pressed. For a direction, it also
// drives the corresponding analog axis to its extreme, since this engine
// only models the analog-axis joystick variant.
func (j *Joystick) KeyDown(code int) {
	switch code {
	case DirUp:
		j.up = true
		j.yDirection = axisMax
	case DirDown:
		j.down = true
		j.yDirection = axisMin
	case DirLeft:
		j.left = true
		j.xDirection = axisMin
	case DirRight:
		j.right = true
		j.xDirection = axisMax
	case Button1:
		j.buttonState &^= 0x01
	case Button2:
		j.buttonState &^= 0x02
	case Button3:
		j.buttonState &^= 0x04
	case Button4:
		j.buttonState &^= 0x08
	}
}

// KeyUp releases a direction or button. Releasing a direction recenters its
// axis unless the opposing direction is still held.
func (j *Joystick) KeyUp(code int) {
	switch code {
	case DirUp:
		j.up = false
		if !j.down {
			j.yDirection = axisCenter
		}
	case DirDown:
		j.down = false
		if !j.up {
			j.yDirection = axisCenter
		}
	case DirLeft:
		j.left = false
		if !j.right {
			j.xDirection = axisCenter
		}
	case DirRight:
		j.right = false
		if !j.left {
			j.xDirection = axisCenter
		}
	case Button1:
		j.buttonState |= 0x01
	case Button2:
		j.buttonState |= 0x02
	case Button3:
		j.buttonState |= 0x04
	case Button4:
		j.buttonState |= 0x08
	}
}

// TouchPad drives both axes directly from normalized [-1,1] coordinates,
// bypassing the direction booleans entirely (used by pointer/touch input
// rather than a digital d-pad).
func (j *Joystick) TouchPad(x, y float64) {
	j.xDirection = scaleAxis(x)
	j.yDirection = scaleAxis(y)
}

func scaleAxis(v float64) uint8 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return uint8((v+1)*127.5 + 0.5)
}

// ProcessMux is called once per video cycle with the currently selected MUX
// channel and the DAC value riding on it. Channels 0 and 1 carry the Y and
// X axis comparators respectively (matching VectorVideo's own channel
// assignment of yHold/xyOffset); the BIOS finds the stick position by
// ramping the DAC and watching COMPARE cross over.
func (j *Joystick) ProcessMux(muxChan uint8, dac uint8) {
	switch muxChan {
	case 0:
		j.compare = dac >= j.yDirection
	case 1:
		j.compare = dac >= j.xDirection
	}
}

// Compare returns the current COMPARE signal, composited into VIA port B
// bit 5 by the Machine.
func (j *Joystick) Compare() bool { return j.compare }

// ButtonState returns the active-low 4-bit button nibble.
func (j *Joystick) ButtonState() uint8 { return j.buttonState & 0x0F }

// Directions exposes the four switches, mostly for tests and savestate.
func (j *Joystick) Directions() (up, down, left, right bool) {
	return j.up, j.down, j.left, j.right
}

// Axes exposes the two analog axis values.
func (j *Joystick) Axes() (x, y uint8) { return j.xDirection, j.yDirection }

// State is the gob-serializable snapshot of a Joystick, for savestate.
type State struct {
	Up, Down, Left, Right bool
	XDirection, YDirection uint8
	ButtonState            uint8
	Compare                bool
}

// Snapshot captures the full joystick state for savestate.
func (j *Joystick) Snapshot() State {
	return State{
		Up: j.up, Down: j.down, Left: j.left, Right: j.right,
		XDirection: j.xDirection, YDirection: j.yDirection,
		ButtonState: j.buttonState,
		Compare:     j.compare,
	}
}

// Restore replaces the joystick state from a snapshot.
func (j *Joystick) Restore(s State) {
	j.up, j.down, j.left, j.right = s.Up, s.Down, s.Left, s.Right
	j.xDirection, j.yDirection = s.XDirection, s.YDirection
	j.buttonState = s.ButtonState
	j.compare = s.Compare
}
