package ceremony

import "slices"

// State is the whole ceremony state for one epoch. Epoch-scoped fields
// survive session resets; the remaining fields describe the session the
// participant is currently answering and are rebuilt every session.
//
// States are values. The reducer never mutates its input, so a snapshot
// handed out by the store stays valid forever; decoded flip content is
// shared between snapshots rather than copied.
type State struct {
	Epoch uint32 `json:"epoch"`

	ShortAnswers   []AnswerRecord `json:"shortAnswers"`
	LongAnswers    []AnswerRecord `json:"longAnswers"`
	ShortSubmitted bool           `json:"shortAnswersSubmitted"`
	LongSubmitted  bool           `json:"longAnswersSubmitted"`

	Hashes    []FlipRequest `json:"hashes"`
	Flips     []Flip        `json:"flips"`
	Current   int           `json:"currentIndex"`
	Loading   bool          `json:"loading"`
	CanSubmit bool          `json:"canSubmit"`
	LastError string        `json:"error,omitempty"`
}

// NewState returns the initial state for an epoch: nothing submitted and an
// empty session waiting on its first fetch.
func NewState(epoch uint32) State {
	return resetSession(State{Epoch: epoch})
}

// CurrentFlip returns the flip under the cursor, if any.
func (s State) CurrentFlip() (Flip, bool) {
	if len(s.Flips) == 0 {
		return Flip{}, false
	}
	return s.Flips[s.Current], true
}

// Submitted reports whether the given session's answers are on record.
func (s State) Submitted(kind SessionKind) bool {
	if kind == ShortSession {
		return s.ShortSubmitted
	}
	return s.LongSubmitted
}

// resetSession clears the session-scoped fields for the next session.
// Loading starts true: a fresh session is always waiting on a fetch. The
// last error is kept; only a later fetch outcome replaces it.
func resetSession(s State) State {
	s.Hashes = nil
	s.Flips = nil
	s.Current = 0
	s.Loading = true
	s.CanSubmit = false
	return s
}

// cloneState copies the top-level slices so that a state adopted from
// outside the reducer cannot be changed under an already published snapshot.
func cloneState(s State) State {
	s.ShortAnswers = slices.Clone(s.ShortAnswers)
	s.LongAnswers = slices.Clone(s.LongAnswers)
	s.Hashes = slices.Clone(s.Hashes)
	s.Flips = slices.Clone(s.Flips)
	return s
}

// allAnswered reports whether every flip carries an answer. The answer
// events recompute CanSubmit from this; they require a non-empty session, so
// the vacuous empty case never reaches a stored state.
func allAnswered(flips []Flip) bool {
	for _, f := range flips {
		if !f.Answered() {
			return false
		}
	}
	return true
}

// clampIndex confines a cursor to [0, n). An empty session pins the cursor
// to zero.
func clampIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
