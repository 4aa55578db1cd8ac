// Package clock provides wall-clock pacing for the emulation loop: a 50 Hz
// frame throttle and a pause/resume condition variable. It replaces a
// cycle-scheduling clock, since the Vectrex core drives all chips in
// lock-step per CPU cycle rather than at independent component rates.
package clock

import (
	"sync"
	"time"
)

const targetFPS = 50.0

// Throttle paces calls to one frame per 1/50th of a second and lets the
// owning thread park itself while paused, waking on Resume.
type Throttle struct {
	mu            sync.Mutex
	cond          *sync.Cond
	paused        bool
	exit          bool
	frameDuration time.Duration
	lastFrame     time.Time
	warp          bool
}

// NewThrottle returns a Throttle armed for the standard 50 Hz frame rate.
func NewThrottle() *Throttle {
	t := &Throttle{
		frameDuration: time.Duration(float64(time.Second) / targetFPS),
		lastFrame:     time.Now(),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// SetWarp disables wall-clock pacing entirely (runUntilFrame(warpSpeed)),
// used for fast-forward.
func (t *Throttle) SetWarp(warp bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.warp = warp
}

// WaitForFrame blocks until both the pause state clears and the 1/50s frame
// budget since the previous call has elapsed. It is the only suspension
// point in the emulation loop, called once per completed frame.
func (t *Throttle) WaitForFrame() {
	t.mu.Lock()
	for t.paused && !t.exit {
		t.cond.Wait()
	}
	warp := t.warp
	t.mu.Unlock()

	if warp {
		t.mu.Lock()
		t.lastFrame = time.Now()
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	elapsed := time.Since(t.lastFrame)
	budget := t.frameDuration
	t.mu.Unlock()

	if elapsed < budget {
		time.Sleep(budget - elapsed)
	}

	t.mu.Lock()
	t.lastFrame = time.Now()
	t.mu.Unlock()
}

// Pause parks the next WaitForFrame call until Resume is signalled.
func (t *Throttle) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

// Resume wakes a thread blocked in WaitForFrame.
func (t *Throttle) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
	t.cond.Broadcast()
}

// IsPaused reports the current pause state.
func (t *Throttle) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Stop sets the cooperative exit flag and wakes any paused thread, so the
// loop can exit at its next frame boundary rather than block forever.
func (t *Throttle) Stop() {
	t.mu.Lock()
	t.exit = true
	t.mu.Unlock()
	t.cond.Broadcast()
}

// ShouldExit reports whether Stop has been called.
func (t *Throttle) ShouldExit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exit
}
