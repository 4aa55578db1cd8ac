// Package video models the Vectrex's analog vector-drawing path: DAC,
// four-channel multiplexer, X/Y integrators, Z sample-and-hold, and the
// phosphor ring buffer that stands in for CRT persistence.
package video

import "sync/atomic"

// DotCount is the size of the phosphor ring.
const DotCount = 50000

// Dot is one point the electron gun drew, with its current and original
// brightness.
type Dot struct {
	X, Y    int32
	Z       uint8
	OrigZ   uint8
	IsStart bool
}

// Phosphors is a lock-free single-producer/single-consumer ring of dots.
// The emulation thread is the sole producer (Move); a render thread is the
// sole consumer (DecayAndAdvanceFade). add and fade are the only shared
// state and are published/observed with atomic load/store, which on all
// Go-supported architectures gives the release/acquire ordering the two
// threads need without a mutex.
type Phosphors struct {
	dots [DotCount]Dot

	add  atomic.Uint64
	fade atomic.Uint64

	currentlyInLine bool // producer-only, no synchronization needed
}

// NewPhosphors returns an empty ring.
func NewPhosphors() *Phosphors {
	return &Phosphors{}
}

// Move is called once per video cycle with the pending gun deltas. If the
// beam is on and the gun is inside the visible screen box, a dot is
// appended at the gun's current (pre-move) position; otherwise the
// in-stroke flag is cleared so the next visible dot starts a new stroke.
// gunX/gunY are owned by VectorVideo and passed by reference since the
// move itself (not just the append) is part of this algorithm.
func (p *Phosphors) Move(gunX, gunY *int32, dX, dY int32, z uint8, beamOn bool) {
	const (
		xMin, xMax = -16384, 16384
		yMin, yMax = -20480, 20480
	)
	if beamOn && *gunX >= xMin && *gunX < xMax && *gunY >= yMin && *gunY < yMax {
		p.append(*gunX>>6, *gunY>>6, z, !p.currentlyInLine)
		p.currentlyInLine = true
	} else {
		p.currentlyInLine = false
	}
	*gunX += dX
	*gunY += dY
}

// append writes a new dot at the producer's add index and publishes it. If
// the ring has caught up to the consumer (more than DotCount-1 unconsumed
// dots), it forces fade forward — the CRT itself has no more history than
// the ring can hold, so new dots overwrite the oldest ones rather than the
// producer blocking on a slow renderer.
func (p *Phosphors) append(x, y int32, z uint8, isStart bool) {
	idx := p.add.Load()
	p.dots[idx%DotCount] = Dot{X: x, Y: y, Z: z, OrigZ: z, IsStart: isStart}
	next := idx + 1
	p.add.Store(next)
	if fade := p.fade.Load(); next-fade > DotCount-1 {
		p.fade.Store(next - (DotCount - 1))
	}
}

// Add returns the producer's current index (acquire read, for the
// renderer).
func (p *Phosphors) Add() uint64 { return p.add.Load() }

// Fade returns the consumer's current index.
func (p *Phosphors) Fade() uint64 { return p.fade.Load() }

// DotAt returns the dot at ring index i (caller supplies i in [Fade(),
// Add())).
func (p *Phosphors) DotAt(i uint64) Dot { return p.dots[i%DotCount] }

// PhosphorsState is the gob-serializable snapshot of a Phosphors ring, for
// savestate.
type PhosphorsState struct {
	Dots            [DotCount]Dot
	Add             uint64
	Fade            uint64
	CurrentlyInLine bool
}

// Snapshot captures the full ring for savestate.
func (p *Phosphors) Snapshot() PhosphorsState {
	return PhosphorsState{
		Dots:            p.dots,
		Add:             p.add.Load(),
		Fade:            p.fade.Load(),
		CurrentlyInLine: p.currentlyInLine,
	}
}

// Restore replaces the ring contents from a snapshot.
func (p *Phosphors) Restore(s PhosphorsState) {
	p.dots = s.Dots
	p.add.Store(s.Add)
	p.fade.Store(s.Fade)
	p.currentlyInLine = s.CurrentlyInLine
}

// DecayAndAdvanceFade is the renderer's only write: it decays the z of
// every live dot by decayStep and advances fade past any dot that reached
// zero, stopping at the first still-visible one.
func (p *Phosphors) DecayAndAdvanceFade(decayStep uint8) {
	add := p.add.Load()
	fade := p.fade.Load()
	advancing := true
	for i := fade; i < add; i++ {
		d := &p.dots[i%DotCount]
		if d.Z > decayStep {
			d.Z -= decayStep
		} else {
			d.Z = 0
		}
		if advancing && d.Z == 0 {
			fade = i + 1
		} else {
			advancing = false
		}
	}
	p.fade.Store(fade)
}
