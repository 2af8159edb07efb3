// ABOUTME: Cooperative cancellation for long running transfers
// ABOUTME: Canceller query, atomic stop flag and context adapter
package transfer

import (
	"context"
	"sync/atomic"
)

// Canceller reports whether a stop was requested. It must be safe to call
// from the session goroutine while another goroutine requests the stop.
type Canceller func() bool

// Never is a Canceller that never requests a stop
func Never() bool { return false }

// StopFlag is a thread-safe stop request set by the host (UI key, signal)
type StopFlag struct {
	requested atomic.Bool
}

// Request asks the running session to stop at its next poll
func (f *StopFlag) Request() {
	f.requested.Store(true)
}

// Requested reports whether Request was called; usable as a Canceller
func (f *StopFlag) Requested() bool {
	return f.requested.Load()
}

// FromContext returns a Canceller that fires once ctx is done
func FromContext(ctx context.Context) Canceller {
	return func() bool {
		return ctx.Err() != nil
	}
}

// Any combines cancellers; nil members are skipped
func Any(cs ...Canceller) Canceller {
	return func() bool {
		for _, c := range cs {
			if c != nil && c() {
				return true
			}
		}
		return false
	}
}
