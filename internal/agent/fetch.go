package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/perales/rite/internal/ceremony"
)

// DefaultRefetchInterval is how long the fetcher waits before re-requesting
// flips whose content has not arrived yet.
const DefaultRefetchInterval = 3 * time.Second

// Fetcher drives the flip-loading choreography. On every entry into a
// session period it dispatches FlipFetchStarted, pulls the hash list and the
// content batch from the flip source, and dispatches the outcome. While the
// session has undecoded flips it keeps re-requesting just those hashes and
// feeding the store MissingFlipsFetched events.
//
// The fetcher only produces events; all state transitions stay in the
// reducer.
type Fetcher struct {
	store   *ceremony.Store
	phases  ceremony.PhaseSource
	flips   ceremony.FlipSource
	refetch time.Duration
}

// NewFetcher creates a Fetcher. A non-positive refetch interval falls back to
// DefaultRefetchInterval.
func NewFetcher(store *ceremony.Store, phases ceremony.PhaseSource, flips ceremony.FlipSource, refetch time.Duration) *Fetcher {
	if refetch <= 0 {
		refetch = DefaultRefetchInterval
	}
	return &Fetcher{
		store:   store,
		phases:  phases,
		flips:   flips,
		refetch: refetch,
	}
}

// Run watches phase changes until ctx ends. The current phase is inspected
// once at startup so a client joining mid-session still loads its flips.
func (f *Fetcher) Run(ctx context.Context) error {
	changes := f.phases.Changes(ctx)

	f.maybeFetch(ctx, f.phases.Current())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case phase, ok := <-changes:
			if !ok {
				return nil
			}
			f.maybeFetch(ctx, phase)
		}
	}
}

func sessionPeriod(p ceremony.Period) bool {
	return p == ceremony.PeriodShortSession || p == ceremony.PeriodLongSession
}

// maybeFetch loads the session's flips if phase is a session period, then
// stays in the refill loop until every flip is decoded or the period moves
// on. Queued phase changes are handled by the caller once this returns.
func (f *Fetcher) maybeFetch(ctx context.Context, phase ceremony.Phase) {
	if !sessionPeriod(phase.Period) {
		return
	}

	f.store.Dispatch(ceremony.FlipFetchStarted{})

	requests, err := f.flips.FlipHashes(ctx)
	if err != nil {
		slog.Warn("flip hash fetch failed", "period", phase.Period, "error", err)
		f.store.Dispatch(ceremony.FlipFetchFailed{Err: err})
		return
	}

	hashes := make([]string, len(requests))
	for i, req := range requests {
		hashes[i] = req.Hash
	}
	contents, err := f.flips.FlipContents(ctx, hashes)
	if err != nil {
		slog.Warn("flip content fetch failed", "period", phase.Period, "error", err)
		f.store.Dispatch(ceremony.FlipFetchFailed{Err: err})
		return
	}

	f.store.Dispatch(ceremony.FlipsFetched{Requests: requests, Contents: contents})
	slog.Info("session flips fetched",
		"period", phase.Period,
		"hashes", len(requests),
		"contents", len(contents),
	)

	f.refill(ctx, phase.Period)
}

// refill re-requests undecoded flips every refetch interval. Fetch errors
// here are logged and retried rather than dispatched: the session is already
// usable and FlipFetchFailed would put it back into loading.
func (f *Fetcher) refill(ctx context.Context, period ceremony.Period) {
	timer := time.NewTimer(f.refetch)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		timer.Reset(f.refetch)

		if f.phases.Current().Period != period {
			slog.Debug("period moved on with flips pending", "period", period)
			return
		}

		state := f.store.State()
		if state.Loading {
			// the fetched batch has not been applied yet
			continue
		}
		unresolved := unresolvedHashes(state)
		if len(unresolved) == 0 {
			slog.Debug("all session flips decoded", "period", period)
			return
		}
		slog.Debug("flips pending", "period", period, "hashes", unresolved)

		contents, err := f.flips.FlipContents(ctx, unresolved)
		if err != nil {
			slog.Warn("missing flip fetch failed", "period", period, "error", err)
			continue
		}
		if len(contents) == 0 {
			continue
		}
		f.store.Dispatch(ceremony.MissingFlipsFetched{Contents: contents})
	}
}

// unresolvedHashes lists the session flips still waiting for decodable
// content. Ready flags do not matter here: a flip marked ready by the hash
// list is still unresolved until its payload decodes.
func unresolvedHashes(s ceremony.State) []string {
	var out []string
	for _, flip := range s.Flips {
		if !flip.Decoded() {
			out = append(out, flip.Hash)
		}
	}
	return out
}
