package ceremony

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
)

// deadlineTick is the seconds-remaining value that fires a submission.
// Firing with exactly one second left keeps the submission clear of the
// period and epoch transitions that land on the zero tick.
const deadlineTick = 1

// DefaultSubmitTries is how many delivery attempts one trigger firing makes
// before giving up until the next qualifying tick.
const DefaultSubmitTries = 3

// SessionKind names the two independently submitted answer sets.
type SessionKind uint8

const (
	ShortSession SessionKind = iota
	LongSession
)

func (k SessionKind) String() string {
	if k == ShortSession {
		return "short"
	}
	return "long"
}

// Trigger submits each session's answers exactly once, as late as possible,
// without user action. It watches the countdown and fires on the tick with
// one second remaining in a session period; the submitted flag in the store
// is the only guard against firing twice, so the trigger re-checks it after
// every suspension point.
//
// Run must be called from exactly one goroutine; the trigger processes ticks
// serially, one firing at a time.
type Trigger struct {
	store   *Store
	phases  PhaseSource
	ticks   TickSource
	submit  Submitter
	persist Persistence

	tokens     TokenGenerator
	journal    AttemptJournal
	tries      uint
	newBackOff func() backoff.BackOff
}

// TriggerOption configures a Trigger.
type TriggerOption func(*Trigger)

// WithSubmitTries overrides the delivery attempts per firing.
func WithSubmitTries(n uint) TriggerOption {
	return func(t *Trigger) {
		t.tries = n
	}
}

// WithTokenGenerator overrides the attempt token source. Tests pass a
// FixedGenerator for deterministic traces.
func WithTokenGenerator(g TokenGenerator) TriggerOption {
	return func(t *Trigger) {
		t.tokens = g
	}
}

// WithRetryBackOff overrides how delivery retries space themselves. The
// factory is invoked once per firing; each firing needs a fresh schedule.
func WithRetryBackOff(factory func() backoff.BackOff) TriggerOption {
	return func(t *Trigger) {
		t.newBackOff = factory
	}
}

// WithAttemptJournal records every firing in a forensic journal before
// delivery. Without it, attempts leave only log lines.
func WithAttemptJournal(j AttemptJournal) TriggerOption {
	return func(t *Trigger) {
		t.journal = j
	}
}

// NewTrigger wires a trigger to the store it guards and the ports it drives.
func NewTrigger(
	store *Store,
	phases PhaseSource,
	ticks TickSource,
	submit Submitter,
	persist Persistence,
	opts ...TriggerOption,
) *Trigger {
	t := &Trigger{
		store:   store,
		phases:  phases,
		ticks:   ticks,
		submit:  submit,
		persist: persist,
		tokens:  UUIDv7Generator{},
		tries:   DefaultSubmitTries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run consumes countdown ticks until ctx ends or the tick source closes.
func (t *Trigger) Run(ctx context.Context) error {
	ticks := t.ticks.Ticks(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case secs, ok := <-ticks:
			if !ok {
				return nil
			}
			if secs != deadlineTick {
				continue
			}
			t.fire(ctx)
		}
	}
}

// fire handles one deadline tick. The phase is read at fire time: the
// one-second margin guarantees the period read here is still the period the
// tick counted down.
func (t *Trigger) fire(ctx context.Context) {
	phase := t.phases.Current()
	switch phase.Period {
	case PeriodShortSession:
		t.submitSession(ctx, phase, ShortSession)
	case PeriodLongSession:
		t.submitSession(ctx, phase, LongSession)
	default:
		// Deadline of a non-session period; nothing to submit.
	}
}

func (t *Trigger) submitSession(ctx context.Context, phase Phase, kind SessionKind) {
	st := t.store.State()
	if st.Submitted(kind) {
		return
	}
	if !HasRealAnswer(st.Flips) {
		slog.Debug("deadline tick with no real answers, skipping",
			"session", kind, "epoch", phase.Epoch)
		return
	}

	payload := BuildPayload(st.Flips)
	token := t.tokens.Generate()
	slog.Info("submitting answers",
		"session", kind, "epoch", phase.Epoch, "attempt", token, "answers", len(payload))

	if t.journal != nil {
		if err := t.journal.RecordAttempt(ctx, token, kind, phase.Epoch, payload); err != nil {
			slog.Warn("journaling attempt failed",
				"session", kind, "epoch", phase.Epoch, "attempt", token, "error", err)
		}
	}

	if err := t.deliver(ctx, kind, payload); err != nil {
		// The flag stays down; the next qualifying tick retries.
		slog.Error("submission failed",
			"session", kind, "epoch", phase.Epoch, "attempt", token, "error", err)
		return
	}

	// The flags may have flipped while the call was in flight; re-check
	// before recording, the flag is the sole at-most-once guard.
	if t.store.State().Submitted(kind) {
		slog.Warn("answers already recorded elsewhere, skipping record",
			"session", kind, "epoch", phase.Epoch, "attempt", token)
		return
	}

	if err := t.record(ctx, kind, payload, phase.Epoch); err != nil {
		// Network delivery succeeded but the durable record did not, so
		// the flag stays down and the next tick resubmits. Endpoints take
		// payloads idempotently; losing the record would be worse.
		slog.Error("recording answers failed",
			"session", kind, "epoch", phase.Epoch, "attempt", token, "error", err)
		return
	}

	t.dispatch(kind, payload, phase.Epoch)
	slog.Info("answers submitted",
		"session", kind, "epoch", phase.Epoch, "attempt", token)
}

// deliver pushes the payload to the network, retrying transient failures
// within this firing.
func (t *Trigger) deliver(ctx context.Context, kind SessionKind, payload []AnswerRecord) error {
	op := func() (struct{}, error) {
		var err error
		switch kind {
		case ShortSession:
			err = t.submit.SubmitShortAnswers(ctx, payload, 0, 0)
		default:
			err = t.submit.SubmitLongAnswers(ctx, payload, 0, 0)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(t.tries),
	)
	return err
}

func (t *Trigger) record(ctx context.Context, kind SessionKind, payload []AnswerRecord, epoch uint32) error {
	if kind == ShortSession {
		return t.persist.SetShortAnswers(ctx, payload, epoch)
	}
	return t.persist.SetLongAnswers(ctx, payload, epoch)
}

func (t *Trigger) dispatch(kind SessionKind, payload []AnswerRecord, epoch uint32) {
	if kind == ShortSession {
		t.store.Dispatch(ShortAnswersSubmitted{Answers: payload, Epoch: epoch})
		return
	}
	t.store.Dispatch(LongAnswersSubmitted{Answers: payload, Epoch: epoch})
}
