package ceremony

import (
	"fmt"
	"slices"
)

// Reduce applies one event to a state and returns the next state. It is
// pure: the input is never mutated, no clock or I/O is consulted, and the
// same state and event always yield the same result, so a replayed event
// sequence reproduces a session exactly.
//
// The preconditions stated on the event types are owed by the caller.
// Violating one (a PickFlip index out of range, answering an empty session,
// an event kind from outside the union) is a programming error and panics;
// everything else, including duplicate submissions and malformed flip
// payloads, reduces normally.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case ValidationLoaded:
		return cloneState(ev.Snapshot)

	case FlipFetchStarted:
		s.Loading = true
		return s

	case FlipsFetched:
		// Decode failures already left their flips unready; the joined
		// error is diagnostic and surfaces at the dispatch site instead.
		flips, _ := DecodeFlips(ev.Requests, ev.Contents)
		s.Hashes = slices.Clone(ev.Requests)
		s.Flips = flips
		s.Loading = false
		return s

	case MissingFlipsFetched:
		flips, _ := DecodeFlips(s.Hashes, ev.Contents)
		s.Flips = adoptDecoded(s.Flips, flips)
		s.Loading = false
		return s

	case FlipFetchFailed:
		// Loading stays true: the session is still waiting on a retry.
		s.Loading = true
		s.LastError = errString(ev.Err)
		return s

	case PrevFlip:
		s.Current = clampIndex(s.Current-1, len(s.Flips))
		return s

	case NextFlip:
		s.Current = clampIndex(s.Current+1, len(s.Flips))
		return s

	case PickFlip:
		if ev.Index < 0 || ev.Index >= len(s.Flips) {
			panic(fmt.Sprintf("ceremony: pick index %d outside %d flips", ev.Index, len(s.Flips)))
		}
		s.Current = ev.Index
		return s

	case FlipAnswered:
		if len(s.Flips) == 0 {
			panic("ceremony: answer dispatched with no flips loaded")
		}
		flips := slices.Clone(s.Flips)
		opt := ev.Option
		flips[s.Current].Answer = &opt
		s.Flips = flips
		s.CanSubmit = allAnswered(flips)
		return s

	case FlipReported:
		if len(s.Flips) == 0 {
			panic("ceremony: report dispatched with no flips loaded")
		}
		flips := slices.Clone(s.Flips)
		opt := AnswerInappropriate
		flips[s.Current].Answer = &opt
		s.Flips = flips
		s.Current = clampIndex(s.Current+1, len(flips))
		s.CanSubmit = allAnswered(flips)
		return s

	case ShortAnswersSubmitted:
		s.ShortAnswers = slices.Clone(ev.Answers)
		s.ShortSubmitted = true
		s.Epoch = ev.Epoch
		return resetSession(s)

	case LongAnswersSubmitted:
		s.LongAnswers = slices.Clone(ev.Answers)
		s.LongSubmitted = true
		s.Epoch = ev.Epoch
		return resetSession(s)

	case EpochReset:
		s.ShortAnswers = nil
		s.LongAnswers = nil
		s.ShortSubmitted = false
		s.LongSubmitted = false
		s.Epoch = ev.Epoch
		return resetSession(s)

	default:
		panic(fmt.Sprintf("ceremony: unhandled event type %T", ev))
	}
}

// adoptDecoded merges a fresh decode pass into the current flips. Flips that
// already had content keep their entry, answer included; the rest adopt the
// fresh result. Matching is by hash so the merge is insensitive to ordering.
func adoptDecoded(current, decoded []Flip) []Flip {
	if len(current) == 0 {
		return decoded
	}
	byHash := make(map[string]Flip, len(current))
	for _, f := range current {
		if f.Decoded() {
			byHash[f.Hash] = f
		}
	}
	merged := slices.Clone(decoded)
	for i, f := range merged {
		if prev, ok := byHash[f.Hash]; ok {
			merged[i] = prev
		}
	}
	return merged
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
