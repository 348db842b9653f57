package ceremony

import (
	"context"
	"fmt"
)

// Period is the externally reported phase of the validation cycle.
type Period uint8

const (
	PeriodNone Period = iota
	PeriodFlipLottery
	PeriodShortSession
	PeriodLongSession
	PeriodAfterLongSession
)

func (p Period) String() string {
	switch p {
	case PeriodNone:
		return "none"
	case PeriodFlipLottery:
		return "flip_lottery"
	case PeriodShortSession:
		return "short_session"
	case PeriodLongSession:
		return "long_session"
	case PeriodAfterLongSession:
		return "after_long_session"
	default:
		return fmt.Sprintf("period(%d)", uint8(p))
	}
}

// Phase pairs the reported epoch with its current period.
type Phase struct {
	Epoch  uint32 `json:"epoch" yaml:"epoch"`
	Period Period `json:"period" yaml:"period"`
}

// PhaseSource reports where the validation cycle stands. Current must be
// cheap and callable at any moment from any goroutine. Changes delivers a
// value for every observed phase change until ctx ends, then closes.
type PhaseSource interface {
	Current() Phase
	Changes(ctx context.Context) <-chan Phase
}

// TickSource delivers the whole seconds remaining in the current period,
// once per second, strictly decreasing within a period. The channel closes
// when ctx ends.
type TickSource interface {
	Ticks(ctx context.Context) <-chan int
}

// Persistence durably records validation progress. It is read once at
// startup and written on every submission and epoch reset; its contents must
// survive a process restart, they are what stops a restarted client from
// submitting twice.
type Persistence interface {
	GetValidation(ctx context.Context) (State, error)
	ResetValidation(ctx context.Context, epoch uint32) error
	SetShortAnswers(ctx context.Context, answers []AnswerRecord, epoch uint32) error
	SetLongAnswers(ctx context.Context, answers []AnswerRecord, epoch uint32) error
}

// Submitter delivers answer payloads to the network. Delivery is
// at-least-once across crashes: a crash between network success and the
// local record repeats the submission on the next run, so endpoints must
// take payloads idempotently. The two trailing arguments are reserved
// protocol fields, always zero from this client.
type Submitter interface {
	SubmitShortAnswers(ctx context.Context, answers []AnswerRecord, reserved1, reserved2 int) error
	SubmitLongAnswers(ctx context.Context, answers []AnswerRecord, reserved1, reserved2 int) error
}

// FlipSource serves a session's flips: first the hash list, then content for
// the requested hashes. Content for a hash may be missing from a response;
// callers re-request those separately.
type FlipSource interface {
	FlipHashes(ctx context.Context) ([]FlipRequest, error)
	FlipContents(ctx context.Context, hashes []string) ([]FlipContent, error)
}

// FlipArchiver moves an outgoing epoch's flips to cold storage. It is
// invoked on every detected epoch change and must tolerate repeats: a failed
// reset makes the watcher hand over the same flips again.
type FlipArchiver interface {
	ArchiveFlips(ctx context.Context, epoch uint32, flips []Flip) error
}

// AttemptJournal keeps a forensic record of submission attempts, keyed by
// attempt token. The trigger writes the attempt before delivering, so a
// journal row without a matching validation record marks a crash or failure
// inside the submission window. The journal never guards anything; failures
// to write it are logged and ignored.
type AttemptJournal interface {
	RecordAttempt(ctx context.Context, token string, kind SessionKind, epoch uint32, answers []AnswerRecord) error
}
