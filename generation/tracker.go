// Package generation tracks the progress of a remote code-generation run.
package generation

import "time"

// Phase is the client-side view of generation progress.
type Phase int

const (
	Idle Phase = iota
	Ready
	Generating
	Completed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Generating:
		return "generating"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Status is a point-in-time copy of generation progress.
type Status struct {
	Phase        Phase
	CanGenerate  bool
	Message      string
	Contributors []string
}

// Tracker owns the generation phase and the guard timer that keeps the busy
// state from lingering when the service goes silent. Tracker methods are not
// safe for concurrent use; the owner serializes access. The guard callback
// fires on its own goroutine, so it must re-enter through the owner and
// present its sequence number to ExpireIfCurrent rather than mutate directly.
type Tracker struct {
	timeout time.Duration

	phase        Phase
	canGenerate  bool
	message      string
	contributors []string

	seq   uint64
	timer *time.Timer
}

// New returns a Tracker whose guard timer fires after the given timeout.
func New(timeout time.Duration) *Tracker {
	return &Tracker{timeout: timeout}
}

func (t *Tracker) Phase() Phase { return t.phase }

// Busy reports whether a generation run is in flight. It is the single
// source of the loading indicator.
func (t *Tracker) Busy() bool { return t.phase == Generating }

// CanGenerate reports whether a generate_code command may be issued now.
func (t *Tracker) CanGenerate() bool { return t.canGenerate && t.phase != Generating }

// Status returns a copy of the current progress.
func (t *Tracker) Status() Status {
	return Status{
		Phase:        t.phase,
		CanGenerate:  t.canGenerate,
		Message:      t.message,
		Contributors: append([]string(nil), t.contributors...),
	}
}

// Begin moves the tracker to Generating and arms the guard timer. When the
// guard fires, onTimeout receives the sequence number of this run; the owner
// passes it back through ExpireIfCurrent, which rejects stale firings.
func (t *Tracker) Begin(onTimeout func(seq uint64)) {
	t.cancelGuard()
	t.phase = Generating
	t.seq++
	seq := t.seq
	if t.timeout > 0 && onTimeout != nil {
		t.timer = time.AfterFunc(t.timeout, func() { onTimeout(seq) })
	}
}

// ExpireIfCurrent applies the guard transition if seq still identifies the
// in-flight run. It returns false when the run already reached a terminal
// record, so a late firing does nothing.
func (t *Tracker) ExpireIfCurrent(seq uint64) bool {
	if seq != t.seq || t.phase != Generating {
		return false
	}
	t.phase = Failed
	t.timer = nil
	return true
}

// Finish records a terminal phase and cancels the guard. Safe to call when no
// run is in flight; a completion record can arrive unprompted after a
// reconnect.
func (t *Tracker) Finish(p Phase) {
	t.cancelGuard()
	t.phase = p
}

// FinishIfBusy records a terminal phase only when a run is in flight.
func (t *Tracker) FinishIfBusy(p Phase) bool {
	if t.phase != Generating {
		return false
	}
	t.Finish(p)
	return true
}

// ApplyStatus folds a generation_status record into the tracker. A status of
// "completed" or "failed" terminates an in-flight run; a plain readiness
// report never interrupts Generating, and otherwise resolves the phase to
// Ready or Idle.
func (t *Tracker) ApplyStatus(canGenerate bool, message string, contributors []string, status string) {
	t.canGenerate = canGenerate
	t.message = message
	t.contributors = append([]string(nil), contributors...)
	switch status {
	case "completed":
		t.Finish(Completed)
	case "failed":
		t.Finish(Failed)
	default:
		if t.phase != Generating {
			if canGenerate {
				t.phase = Ready
			} else {
				t.phase = Idle
			}
		}
	}
}

// Reset returns the tracker to its initial state, cancelling any guard.
func (t *Tracker) Reset() {
	t.cancelGuard()
	t.phase = Idle
	t.canGenerate = false
	t.message = ""
	t.contributors = nil
}

// CancelGuard stops the guard timer without touching the phase. Used on
// teardown so a dying store cannot receive a timeout.
func (t *Tracker) CancelGuard() {
	t.cancelGuard()
}

func (t *Tracker) cancelGuard() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	// Invalidate any firing already scheduled on another goroutine.
	t.seq++
}
