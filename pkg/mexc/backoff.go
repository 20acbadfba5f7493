package mexc

import "time"

// Backoff yields linearly growing reconnect delays: Floor, Floor+Step,
// Floor+2*Step, ... capped at Max. It is not safe for concurrent use; the
// stream client only touches it from its run loop.
type Backoff struct {
	Floor time.Duration
	Step  time.Duration
	Max   time.Duration

	failures int
}

func NewBackoff(floor, step, max time.Duration) *Backoff {
	return &Backoff{Floor: floor, Step: step, Max: max}
}

// Next records one more consecutive failure and returns the delay to wait.
func (b *Backoff) Next() time.Duration {
	d := b.Floor + time.Duration(b.failures)*b.Step
	if d >= b.Max {
		return b.Max
	}
	b.failures++
	return d
}

// Reset returns the delay to Floor.
func (b *Backoff) Reset() {
	b.failures = 0
}
