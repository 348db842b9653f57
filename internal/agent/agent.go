// Package agent assembles the ceremony state machine with its background
// producers: the store loop, the submission trigger, the epoch watcher, the
// flip fetcher and the countdown armer all run under one group, wired to the
// ports the caller supplies.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perales/rite/internal/ceremony"
	"github.com/perales/rite/internal/countdown"
)

// DeadlineArmer is the writable side of a countdown tick source. The agent
// arms it at session boundaries and disarms it between sessions.
type DeadlineArmer interface {
	SetDeadline(at time.Time)
	ClearDeadline()
}

// SessionLengths reports how long a period's session lasts. Periods without
// a session deadline return false.
type SessionLengths func(ceremony.Period) (time.Duration, bool)

// Options carries the ports and knobs for an Agent. Phases, Submitter,
// Persistence, Flips and Archiver are required. Ticks may be left nil
// together with Armer: the agent then runs its own wall-clock countdown and
// arms it at session boundaries, which makes SessionLengths required.
type Options struct {
	Phases      ceremony.PhaseSource
	Ticks       ceremony.TickSource
	Submitter   ceremony.Submitter
	Persistence ceremony.Persistence
	Flips       ceremony.FlipSource
	Archiver    ceremony.FlipArchiver

	// RefetchInterval paces the missing-flip refill loop. Zero means
	// DefaultRefetchInterval.
	RefetchInterval time.Duration

	// TriggerOptions and StoreOptions pass through to the trigger and store
	// constructors.
	TriggerOptions []ceremony.TriggerOption
	StoreOptions   []ceremony.StoreOption

	// Armer, when set, is re-armed on every session boundary using
	// SessionLengths. Leave nil when the tick source keeps its own schedule.
	Armer          DeadlineArmer
	SessionLengths SessionLengths

	// Now is the wall clock used for arming deadlines. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) validate() error {
	if o.Phases == nil || o.Ticks == nil || o.Submitter == nil || o.Persistence == nil || o.Flips == nil || o.Archiver == nil {
		return errors.New("agent: all ports must be set")
	}
	if o.Armer != nil && o.SessionLengths == nil {
		return errors.New("agent: an armer needs session lengths")
	}
	return nil
}

// Agent owns a running ceremony assembly. Until Run has loaded the persisted
// snapshot the store is absent: Dispatch reports false and State returns the
// zero value.
type Agent struct {
	opts Options

	mu    sync.RWMutex
	store *ceremony.Store
}

// New validates the options and creates an Agent. The persisted snapshot is
// not read until Run.
func New(opts Options) (*Agent, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	// No injected tick source: run the production countdown and arm it at
	// session boundaries.
	if opts.Ticks == nil && opts.Armer == nil {
		ticker := countdown.New(countdown.WithNowFunc(opts.Now))
		opts.Ticks = ticker
		opts.Armer = ticker
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Agent{opts: opts}, nil
}

// Run loads the persisted validation snapshot, builds the store around it,
// and runs every background producer until ctx ends or one of them fails.
// Loading happens before any producer starts, so the watcher's initial epoch
// reconciliation and the trigger's flag checks always see restored state.
func (a *Agent) Run(ctx context.Context) error {
	snapshot, err := a.opts.Persistence.GetValidation(ctx)
	if err != nil {
		return fmt.Errorf("load validation: %w", err)
	}

	store := ceremony.NewStore(snapshot, a.opts.StoreOptions...)
	a.mu.Lock()
	a.store = store
	a.mu.Unlock()

	trigger := ceremony.NewTrigger(store, a.opts.Phases, a.opts.Ticks, a.opts.Submitter, a.opts.Persistence, a.opts.TriggerOptions...)
	watcher := ceremony.NewEpochWatcher(store, a.opts.Phases, a.opts.Persistence, a.opts.Archiver)
	fetcher := NewFetcher(store, a.opts.Phases, a.opts.Flips, a.opts.RefetchInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return store.Run(ctx) })
	g.Go(func() error { return trigger.Run(ctx) })
	g.Go(func() error { return watcher.Run(ctx) })
	g.Go(func() error { return fetcher.Run(ctx) })
	if a.opts.Armer != nil {
		g.Go(func() error { return a.armDeadlines(ctx) })
	}
	return g.Wait()
}

// Dispatch queues an event on the running store. It reports false before Run
// has started the store or after shutdown.
func (a *Agent) Dispatch(ev ceremony.Event) bool {
	a.mu.RLock()
	store := a.store
	a.mu.RUnlock()
	if store == nil {
		return false
	}
	return store.Dispatch(ev)
}

// State returns the current ceremony snapshot, or the zero value before Run.
func (a *Agent) State() ceremony.State {
	a.mu.RLock()
	store := a.store
	a.mu.RUnlock()
	if store == nil {
		return ceremony.State{}
	}
	return store.State()
}
