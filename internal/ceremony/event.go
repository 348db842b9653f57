package ceremony

// Event is one input to Reduce. The union is closed: every kind is a struct
// in this package carrying the unexported marker method, so the reducer's
// type switch covers all of them and a caller cannot smuggle in a new kind.
type Event interface {
	ceremonyEvent()
}

// ValidationLoaded replaces the whole state with a persisted snapshot. It is
// dispatched once at startup, before any other event.
type ValidationLoaded struct {
	Snapshot State
}

// FlipFetchStarted marks the beginning of a flip fetch.
type FlipFetchStarted struct{}

// FlipsFetched carries a completed session fetch: the hash list that was
// served and the payloads that arrived for it. Payloads may be missing or
// malformed; the affected flips simply stay unready.
type FlipsFetched struct {
	Requests []FlipRequest
	Contents []FlipContent
}

// MissingFlipsFetched carries a follow-up delivery of payloads for hashes
// that were still unresolved after the session fetch. Flips that already
// have content keep it, answers included.
type MissingFlipsFetched struct {
	Contents []FlipContent
}

// FlipFetchFailed records a fetch that failed outright. The session keeps
// waiting: loading stays set until a later fetch settles it.
type FlipFetchFailed struct {
	Err error
}

// PrevFlip moves the cursor one flip back, stopping at the first.
type PrevFlip struct{}

// NextFlip moves the cursor one flip forward, stopping at the last.
type NextFlip struct{}

// PickFlip moves the cursor to an absolute position. The index must address
// a loaded flip; the reducer panics otherwise.
type PickFlip struct {
	Index int
}

// FlipAnswered answers the flip under the cursor, replacing any earlier
// answer. Requires a non-empty session.
type FlipAnswered struct {
	Option Answer
}

// FlipReported marks the flip under the cursor inappropriate and advances
// the cursor. Requires a non-empty session.
type FlipReported struct{}

// ShortAnswersSubmitted records a short session payload that was delivered
// and durably persisted. It stamps the epoch, raises the submitted flag and
// resets the session fields.
type ShortAnswersSubmitted struct {
	Answers []AnswerRecord
	Epoch   uint32
}

// LongAnswersSubmitted is the long session counterpart of
// ShortAnswersSubmitted.
type LongAnswersSubmitted struct {
	Answers []AnswerRecord
	Epoch   uint32
}

// EpochReset rolls the state into a new epoch, dropping both answer sets and
// both submitted flags. Callers dispatch it only after observing an epoch
// that differs from the stored one; the reducer does not compare.
type EpochReset struct {
	Epoch uint32
}

func (ValidationLoaded) ceremonyEvent()      {}
func (FlipFetchStarted) ceremonyEvent()      {}
func (FlipsFetched) ceremonyEvent()          {}
func (MissingFlipsFetched) ceremonyEvent()   {}
func (FlipFetchFailed) ceremonyEvent()       {}
func (PrevFlip) ceremonyEvent()              {}
func (NextFlip) ceremonyEvent()              {}
func (PickFlip) ceremonyEvent()              {}
func (FlipAnswered) ceremonyEvent()          {}
func (FlipReported) ceremonyEvent()          {}
func (ShortAnswersSubmitted) ceremonyEvent() {}
func (LongAnswersSubmitted) ceremonyEvent()  {}
func (EpochReset) ceremonyEvent()            {}

// Kind returns a stable lowercase name for an event, used in logs and
// scenario traces.
func Kind(ev Event) string {
	switch ev.(type) {
	case ValidationLoaded:
		return "validation_loaded"
	case FlipFetchStarted:
		return "flip_fetch_started"
	case FlipsFetched:
		return "flips_fetched"
	case MissingFlipsFetched:
		return "missing_flips_fetched"
	case FlipFetchFailed:
		return "flip_fetch_failed"
	case PrevFlip:
		return "prev_flip"
	case NextFlip:
		return "next_flip"
	case PickFlip:
		return "pick_flip"
	case FlipAnswered:
		return "flip_answered"
	case FlipReported:
		return "flip_reported"
	case ShortAnswersSubmitted:
		return "short_answers_submitted"
	case LongAnswersSubmitted:
		return "long_answers_submitted"
	case EpochReset:
		return "epoch_reset"
	default:
		return "unknown"
	}
}
