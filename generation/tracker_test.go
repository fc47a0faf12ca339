package generation

import (
	"testing"
	"time"
)

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Idle, "idle"},
		{Ready, "ready"},
		{Generating, "generating"},
		{Completed, "completed"},
		{Failed, "failed"},
		{Phase(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestApplyStatusResolvesPhase(t *testing.T) {
	tr := New(0)
	tr.ApplyStatus(false, "Please describe your project requirements first.", nil, "")
	if tr.Phase() != Idle {
		t.Errorf("phase = %v, want Idle", tr.Phase())
	}
	tr.ApplyStatus(true, "Ready to generate!", []string{"ux_architect", "devops"}, "")
	if tr.Phase() != Ready {
		t.Errorf("phase = %v, want Ready", tr.Phase())
	}
	if !tr.CanGenerate() {
		t.Error("CanGenerate = false after a positive status")
	}
	st := tr.Status()
	if len(st.Contributors) != 2 || st.Message != "Ready to generate!" {
		t.Errorf("status = %+v", st)
	}
}

func TestApplyStatusDoesNotInterruptGenerating(t *testing.T) {
	tr := New(0)
	tr.ApplyStatus(true, "", nil, "")
	tr.Begin(nil)
	tr.ApplyStatus(true, "still fine", nil, "")
	if tr.Phase() != Generating {
		t.Errorf("readiness report interrupted a run: phase = %v", tr.Phase())
	}
	if tr.CanGenerate() {
		t.Error("CanGenerate = true while a run is in flight")
	}
	tr.ApplyStatus(true, "", nil, "completed")
	if tr.Phase() != Completed {
		t.Errorf("completion status ignored: phase = %v", tr.Phase())
	}
}

func TestBusyTracksGenerating(t *testing.T) {
	tr := New(0)
	if tr.Busy() {
		t.Error("fresh tracker is busy")
	}
	tr.Begin(nil)
	if !tr.Busy() {
		t.Error("Busy = false after Begin")
	}
	tr.Finish(Completed)
	if tr.Busy() {
		t.Error("Busy = true after Finish")
	}
}

func TestGuardFires(t *testing.T) {
	tr := New(10 * time.Millisecond)
	fired := make(chan uint64, 1)
	tr.Begin(func(seq uint64) { fired <- seq })

	var seq uint64
	select {
	case seq = <-fired:
	case <-time.After(time.Second):
		t.Fatal("guard never fired")
	}
	if !tr.ExpireIfCurrent(seq) {
		t.Fatal("ExpireIfCurrent rejected the live run's firing")
	}
	if tr.Phase() != Failed {
		t.Errorf("phase = %v, want Failed", tr.Phase())
	}
	if tr.Busy() {
		t.Error("busy after the guard expired")
	}
}

func TestFinishCancelsGuard(t *testing.T) {
	tr := New(10 * time.Millisecond)
	fired := make(chan uint64, 1)
	tr.Begin(func(seq uint64) { fired <- seq })
	tr.Finish(Completed)

	select {
	case seq := <-fired:
		// The timer may already have been in flight; the stale sequence must
		// be rejected either way.
		if tr.ExpireIfCurrent(seq) {
			t.Error("stale firing applied after Finish")
		}
	case <-time.After(50 * time.Millisecond):
	}
	if tr.Phase() != Completed {
		t.Errorf("phase = %v, want Completed", tr.Phase())
	}
}

func TestStaleSequenceIsNoOp(t *testing.T) {
	tr := New(time.Hour)
	tr.Begin(nil)
	stale := tr.seq
	tr.Finish(Completed)
	tr.Begin(nil)
	if tr.ExpireIfCurrent(stale) {
		t.Error("a previous run's sequence expired the current run")
	}
	if tr.Phase() != Generating {
		t.Errorf("phase = %v, want Generating", tr.Phase())
	}
	tr.CancelGuard()
}

func TestFinishIfBusy(t *testing.T) {
	tr := New(0)
	if tr.FinishIfBusy(Failed) {
		t.Error("FinishIfBusy reported a transition with no run in flight")
	}
	tr.Begin(nil)
	if !tr.FinishIfBusy(Failed) {
		t.Error("FinishIfBusy missed an in-flight run")
	}
	if tr.Phase() != Failed {
		t.Errorf("phase = %v, want Failed", tr.Phase())
	}
}

func TestReset(t *testing.T) {
	tr := New(time.Hour)
	tr.ApplyStatus(true, "ready", []string{"devops"}, "")
	tr.Begin(nil)
	tr.Reset()
	st := tr.Status()
	if st.Phase != Idle || st.CanGenerate || st.Message != "" || len(st.Contributors) != 0 {
		t.Errorf("reset left state behind: %+v", st)
	}
	if tr.timer != nil {
		t.Error("reset left the guard armed")
	}
}
