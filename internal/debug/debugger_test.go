package debug

import "testing"

func TestBreakpointLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		addr    uint16
		disable bool
		remove  bool
		want    bool
	}{
		{name: "enabled breakpoint breaks", addr: 0x1234, want: true},
		{name: "disabled breakpoint does not break", addr: 0x1234, disable: true, want: false},
		{name: "removed breakpoint does not break", addr: 0x1234, remove: true, want: false},
		{name: "unset address never breaks", addr: 0x5678, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewAddressDebugger()
			d.SetBreakpoint(0x1234)
			if tt.disable {
				if !d.DisableBreakpoint(0x1234) {
					t.Fatal("DisableBreakpoint reported no such breakpoint")
				}
			}
			if tt.remove {
				if !d.RemoveBreakpoint(0x1234) {
					t.Fatal("RemoveBreakpoint reported no such breakpoint")
				}
			}

			if got := d.CheckBreakpoint(tt.addr); got != tt.want {
				t.Fatalf("CheckBreakpoint(%04X) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestCheckBreakpointIncrementsHitCount(t *testing.T) {
	d := NewAddressDebugger()
	d.SetBreakpoint(0x4000)

	for i, want := range []int{1, 2, 3} {
		d.CheckBreakpoint(0x4000)
		got := d.GetAllBreakpoints()[0x4000].HitCount
		if got != want {
			t.Fatalf("hit %d: HitCount = %d, want %d", i+1, got, want)
		}
	}
}

func TestShouldBreakOnBreakpointPausesDebugger(t *testing.T) {
	d := NewAddressDebugger()
	d.SetBreakpoint(0x2000)

	if d.IsPaused() {
		t.Fatal("debugger should not start paused")
	}
	if !d.ShouldBreak(0x2000) {
		t.Fatal("ShouldBreak should report true at a breakpoint address")
	}
	if !d.IsPaused() {
		t.Fatal("ShouldBreak should pause the debugger on a breakpoint hit")
	}

	d.Resume()
	if d.IsPaused() {
		t.Fatal("Resume should clear paused")
	}
	if d.ShouldBreak(0x3000) {
		t.Fatal("ShouldBreak should report false at an address with no breakpoint")
	}
}

func TestStepArmsExactlyNCyclesThenPauses(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{name: "single step", count: 1},
		{name: "three-cycle step", count: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewAddressDebugger()
			d.Step(tt.count)

			for i := 0; i < tt.count; i++ {
				if !d.ShouldBreak(0) {
					t.Fatalf("cycle %d: ShouldBreak = false during an armed step", i+1)
				}
				pausedNow := d.IsPaused()
				wantPaused := i == tt.count-1
				if pausedNow != wantPaused {
					t.Fatalf("cycle %d: IsPaused = %v, want %v", i+1, pausedNow, wantPaused)
				}
			}
		})
	}
}

func TestWatchTracksLastValue(t *testing.T) {
	d := NewAddressDebugger()
	d.AddWatch("frameCounter")

	if !d.SampleWatch("frameCounter", 1) {
		t.Fatal("SampleWatch reported no such watch")
	}
	if !d.SampleWatch("frameCounter", 2) {
		t.Fatal("SampleWatch reported no such watch")
	}

	watches := d.GetWatches()
	if len(watches) != 1 {
		t.Fatalf("len(watches) = %d, want 1", len(watches))
	}
	if watches[0].Value != 2 || watches[0].LastValue != 1 {
		t.Fatalf("watch = %+v, want Value=2 LastValue=1", watches[0])
	}

	if d.SampleWatch("nonexistent", 0) {
		t.Fatal("SampleWatch reported success for an unregistered watch")
	}
}

func TestRemoveWatch(t *testing.T) {
	d := NewAddressDebugger()
	d.AddWatch("a")
	d.AddWatch("b")

	if !d.RemoveWatch(0) {
		t.Fatal("RemoveWatch(0) reported no such watch")
	}
	watches := d.GetWatches()
	if len(watches) != 1 || watches[0].Name != "b" {
		t.Fatalf("watches after remove = %+v, want only %q", watches, "b")
	}

	if d.RemoveWatch(5) {
		t.Fatal("RemoveWatch should report false for an out-of-range index")
	}
}

func TestPauseClearsStepping(t *testing.T) {
	d := NewAddressDebugger()
	d.Step(10)
	d.Pause()

	if !d.IsPaused() {
		t.Fatal("Pause should leave the debugger paused")
	}
	if d.ShouldBreak(0) {
		t.Fatal("ShouldBreak should report false after Pause cleared the step budget")
	}
	// A fresh Step call should re-arm cleanly even after a Pause mid-step.
	d.Step(1)
	if !d.ShouldBreak(0) {
		t.Fatal("ShouldBreak should report true for the re-armed step")
	}
}
