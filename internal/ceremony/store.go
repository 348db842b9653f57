package ceremony

import (
	"context"
	"log/slog"
	"sync"
)

// Applied describes one reduced event: its position in the apply order, the
// event itself and the state it produced. Observers receive it from the Run
// goroutine, in order.
type Applied struct {
	Seq   int64
	Event Event
	State State
}

// Store owns the ceremony state. All transitions happen in the single-writer
// Run loop: producers push events with Dispatch from any goroutine and the
// loop reduces them strictly one at a time, so every observer sees the same
// totally ordered history.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine
//   - State(): safe from any goroutine, returns the latest published snapshot
//   - Run(): exactly one goroutine, it is the sole writer
//
// Published snapshots are never mutated afterwards; holding one across a
// suspension point is safe but can go stale, so checks that guard an
// irreversible step must re-read State() after the suspension.
type Store struct {
	queue    *eventQueue
	observer func(Applied)

	mu    sync.RWMutex
	state State
	seq   int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithObserver registers a hook invoked after every applied event, from the
// Run goroutine. The scenario harness uses it to capture traces; the hook
// must not dispatch.
func WithObserver(fn func(Applied)) StoreOption {
	return func(s *Store) {
		s.observer = fn
	}
}

// NewStore creates a store holding initial. The state does not change until
// Run starts consuming dispatched events.
func NewStore(initial State, opts ...StoreOption) *Store {
	s := &Store{
		queue: newEventQueue(),
		state: cloneState(initial),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch submits an event for processing. Safe from any goroutine; events
// from one goroutine are applied in dispatch order. Returns false once the
// store is stopped.
func (s *Store) Dispatch(ev Event) bool {
	return s.queue.Enqueue(ev)
}

// State returns the latest published snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Seq returns how many events have been applied.
func (s *Store) Seq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// QueueLen returns the number of dispatched events not yet applied.
func (s *Store) QueueLen() int {
	return s.queue.Len()
}

// Run starts the single-writer apply loop and blocks until ctx is cancelled
// or Stop is called. Must be called from exactly one goroutine.
func (s *Store) Run(ctx context.Context) error {
	slog.Info("ceremony store starting", "epoch", s.State().Epoch)

	for {
		ev, ok := s.queue.TryDequeue()
		if ok {
			s.apply(ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("ceremony store stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel closes when the queue closes, so this
			// case also fires on Stop; an empty queue then means done.
			if s.queue.Len() == 0 {
				slog.Info("ceremony store stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop shuts the store down after the already dispatched events are applied.
func (s *Store) Stop() {
	s.queue.Close()
}

// apply reduces one event and publishes the result. Called only from the Run
// goroutine.
func (s *Store) apply(ev Event) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	next := Reduce(s.state, ev)
	s.state = next
	s.mu.Unlock()

	slog.Debug("event applied",
		"seq", seq,
		"event", Kind(ev),
		"epoch", next.Epoch,
		"flips", len(next.Flips),
		"current", next.Current,
		"loading", next.Loading,
		"can_submit", next.CanSubmit,
	)

	if s.observer != nil {
		s.observer(Applied{Seq: seq, Event: ev, State: next})
	}
}
