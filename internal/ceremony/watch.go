package ceremony

import (
	"context"
	"log/slog"
	"time"
)

// archiveTimeout bounds the background cold storage move so a hung archiver
// cannot pin an epoch's flips forever.
const archiveTimeout = 30 * time.Second

// EpochWatcher rolls the store into new epochs. On every observed phase
// change whose epoch differs from the stored one it hands the outgoing flips
// to the archiver, durably resets persistence, and dispatches the reset
// event. The comparison lives here: the reducer applies EpochReset without
// re-checking.
type EpochWatcher struct {
	store   *Store
	phases  PhaseSource
	persist Persistence
	archive FlipArchiver

	// Last epoch successfully rolled to. The store applies the reset event
	// asynchronously, so without the memo a queued change and the startup
	// read could both observe the stale epoch and roll twice. Touched only
	// from Run's goroutine.
	rolled    uint32
	hasRolled bool
}

// NewEpochWatcher wires a watcher to the store it rolls over.
func NewEpochWatcher(store *Store, phases PhaseSource, persist Persistence, archive FlipArchiver) *EpochWatcher {
	return &EpochWatcher{
		store:   store,
		phases:  phases,
		persist: persist,
		archive: archive,
	}
}

// Run reconciles once against the current phase, then follows changes until
// ctx ends or the source closes. The initial reconcile covers epochs that
// advanced while the process was down. Subscribing before the initial read
// means a change landing in between is seen either way.
func (w *EpochWatcher) Run(ctx context.Context) error {
	changes := w.phases.Changes(ctx)
	w.reconcile(ctx, w.phases.Current())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case phase, ok := <-changes:
			if !ok {
				return nil
			}
			w.reconcile(ctx, phase)
		}
	}
}

// reconcile rolls the state over if the reported epoch left the stored one
// behind. A failed durable reset leaves the state untouched and the memo
// unset; period changes within the new epoch re-deliver the phase, so the
// roll is retried without a timer here.
func (w *EpochWatcher) reconcile(ctx context.Context, phase Phase) {
	if w.hasRolled && w.rolled == phase.Epoch {
		return
	}
	st := w.store.State()
	if phase.Epoch == st.Epoch {
		w.rolled, w.hasRolled = phase.Epoch, true
		return
	}
	slog.Info("epoch changed", "from", st.Epoch, "to", phase.Epoch, "period", phase.Period)

	// The cold storage move is fire and forget: the reset must not wait on
	// the archiver. The archiver sees each detected change, so a retried
	// roll hands it the same flips again; it has to be idempotent.
	outgoing := st.Flips
	outgoingEpoch := st.Epoch
	go func() {
		actx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := w.archive.ArchiveFlips(actx, outgoingEpoch, outgoing); err != nil {
			slog.Error("archiving flips failed", "epoch", outgoingEpoch, "error", err)
		}
	}()

	if err := w.persist.ResetValidation(ctx, phase.Epoch); err != nil {
		slog.Error("durable epoch reset failed", "epoch", phase.Epoch, "error", err)
		return
	}
	w.store.Dispatch(EpochReset{Epoch: phase.Epoch})
	w.rolled, w.hasRolled = phase.Epoch, true
}
