// ABOUTME: Progress arithmetic and polling throttle
// ABOUTME: Percent complete and remaining time with zero guards
package transfer

import "time"

// DefaultInterval is how many loop iterations pass between progress and
// cancellation polls. Host callbacks can be expensive, so they are not made
// on every window.
const DefaultInterval = 16

// Progress returns percent complete (0..100) and the estimated seconds
// remaining. A zero total or zero completed fraction never divides: both
// values are reported as 0 instead.
func Progress(total, remaining int64, elapsed time.Duration) (int, uint) {
	if remaining < 0 {
		remaining = 0
	}
	if total <= 0 {
		return 0, 0
	}
	if remaining > total {
		remaining = total
	}

	done := total - remaining
	percent := int(100 * done / total)

	fraction := float64(done) / float64(total)
	if fraction <= 0 {
		return percent, 0
	}

	secs := elapsed.Seconds()
	left := secs/fraction - secs
	if left < 0 {
		left = 0
	}
	return percent, uint(left)
}

// Throttle fires once every Interval ticks
type Throttle struct {
	Interval int
	count    int
}

// Tick counts one iteration and reports whether the poll is due
func (t *Throttle) Tick() bool {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	t.count++
	if t.count >= interval {
		t.count = 0
		return true
	}
	return false
}
