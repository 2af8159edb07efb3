// ABOUTME: Terminal outcome of a transfer session
// ABOUTME: Completed, Stopped or Failed plus timing and diagnostics
package transfer

import "time"

// Outcome is the terminal state of a session
type Outcome int

const (
	// Pending means the session has not produced an outcome yet
	Pending Outcome = iota
	Completed
	Stopped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a session reports once it has released its resources
type Result struct {
	Outcome Outcome
	// Err is set only when Outcome is Failed
	Err error
	// Warning carries a SinkCloseWarning when the drain or close failed
	Warning  error
	Started  time.Time
	Finished time.Time
	// Frames counts PCM frames handed to the codec
	Frames int64
}

// Duration returns the wall time between start and finish
func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Fail sets the Failed outcome unless an outcome was already recorded
func (r *Result) Fail(err error) {
	if r.Outcome != Pending {
		return
	}
	r.Outcome = Failed
	r.Err = err
}

// Stop sets the Stopped outcome unless an outcome was already recorded
func (r *Result) Stop() {
	if r.Outcome != Pending {
		return
	}
	r.Outcome = Stopped
}

// Complete sets the Completed outcome unless an outcome was already recorded
func (r *Result) Complete() {
	if r.Outcome != Pending {
		return
	}
	r.Outcome = Completed
}
