package ceremony

import "fmt"

// Answer is a participant's judgment of one flip. The zero value AnswerNone
// doubles as the explicit "neither side" choice and as the filler used for
// flips the participant never touched.
type Answer uint8

const (
	AnswerNone Answer = iota
	AnswerLeft
	AnswerRight
	AnswerInappropriate
)

// Valid reports whether a carries one of the defined answer codes.
func (a Answer) Valid() bool {
	return a <= AnswerInappropriate
}

func (a Answer) String() string {
	switch a {
	case AnswerNone:
		return "none"
	case AnswerLeft:
		return "left"
	case AnswerRight:
		return "right"
	case AnswerInappropriate:
		return "inappropriate"
	default:
		return fmt.Sprintf("answer(%d)", uint8(a))
	}
}

// AnswerRecord is one entry of a submission payload: the answer code for a
// flip plus the reserved easy flag, which the protocol carries but this
// client never sets.
type AnswerRecord struct {
	Answer Answer `json:"answer" yaml:"answer"`
	Easy   bool   `json:"easy" yaml:"easy"`
}

// BuildPayload maps the session's flips to a submission payload, in display
// order. Unanswered flips are carried as AnswerNone rather than omitted, so
// the payload length always equals the flip count.
func BuildPayload(flips []Flip) []AnswerRecord {
	payload := make([]AnswerRecord, len(flips))
	for i, f := range flips {
		if f.Answer != nil {
			payload[i].Answer = *f.Answer
		}
	}
	return payload
}

// HasRealAnswer reports whether at least one flip carries an answer other
// than AnswerNone. An all-AnswerNone payload is indistinguishable from an
// untouched session on the wire, so the trigger refuses to submit one.
func HasRealAnswer(flips []Flip) bool {
	for _, f := range flips {
		if f.Answer != nil && *f.Answer != AnswerNone {
			return true
		}
	}
	return false
}
