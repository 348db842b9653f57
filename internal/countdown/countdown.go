// Package countdown samples the wall clock against a movable deadline and
// reports whole seconds remaining.
//
// The validation cycle runs on session deadlines: whoever drives the cycle
// arms a Ticker at each period boundary, and consumers watch the resulting
// stream for the seconds that matter to them. Each sampled value is delivered
// at most once per armed deadline, so a consumer gating on a specific second
// sees it a single time.
package countdown

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is how often the wall clock is sampled. Sampling faster
// than once per second only narrows the delay between a value becoming
// current and it being reported; each value is still delivered once.
const DefaultInterval = time.Second

// Ticker turns a deadline into a descending stream of whole seconds
// remaining. The deadline is movable: SetDeadline re-arms the ticker at a
// session boundary and ClearDeadline silences it between sessions.
//
// Thread-safety: all methods are safe for concurrent use.
type Ticker struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	deadline time.Time
	gen      uint64
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithInterval overrides the sampling interval. Tests shrink it to keep wall
// time out of the suite.
func WithInterval(d time.Duration) Option {
	return func(t *Ticker) { t.interval = d }
}

// WithNowFunc injects the wall clock source.
func WithNowFunc(now func() time.Time) Option {
	return func(t *Ticker) { t.now = now }
}

// New creates a Ticker with no deadline armed.
func New(opts ...Option) *Ticker {
	t := &Ticker{
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetDeadline arms the ticker toward at. Arming bumps an internal generation
// counter, so a remaining value equal to the last delivered one is still
// delivered again for the new deadline. A zero time disarms, same as
// ClearDeadline.
func (t *Ticker) SetDeadline(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = at
	t.gen++
}

// ClearDeadline disarms the ticker. Samplers stay quiet until the next
// SetDeadline.
func (t *Ticker) ClearDeadline() {
	t.SetDeadline(time.Time{})
}

// Deadline reports the armed deadline, if any.
func (t *Ticker) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, !t.deadline.IsZero()
}

// sample reads the seconds remaining, rounded up, clamped at zero once the
// deadline has passed.
func (t *Ticker) sample() (secs int, gen uint64, armed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline.IsZero() {
		return 0, t.gen, false
	}
	left := t.deadline.Sub(t.now())
	if left <= 0 {
		return 0, t.gen, true
	}
	return int((left + time.Second - 1) / time.Second), t.gen, true
}

// Ticks starts a sampler and returns its channel. The channel carries each
// distinct remaining value once, descending toward zero, and closes when ctx
// ends. After zero is delivered the sampler stays quiet until the deadline
// moves. Every call gets an independent sampler.
func (t *Ticker) Ticks(ctx context.Context) <-chan int {
	out := make(chan int, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		var lastGen uint64
		lastSecs := -1
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			secs, gen, armed := t.sample()
			if !armed {
				lastGen, lastSecs = gen, -1
				continue
			}
			if gen == lastGen && secs == lastSecs {
				continue
			}
			select {
			case out <- secs:
				lastGen, lastSecs = gen, secs
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
