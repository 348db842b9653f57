package harness

import "github.com/perales/rite/internal/ceremony"

// TraceEvent is one applied store event as captured for the trace: its
// sequence number, its kind and the state summary it produced. The summary
// carries only the fields scenarios reason about, so traces stay readable
// and stable across unrelated changes.
type TraceEvent struct {
	Seq            int64  `json:"seq"`
	Event          string `json:"event"`
	Epoch          uint32 `json:"epoch"`
	Flips          int    `json:"flips"`
	Current        int    `json:"current"`
	Loading        bool   `json:"loading"`
	CanSubmit      bool   `json:"can_submit"`
	ShortSubmitted bool   `json:"short_submitted"`
	LongSubmitted  bool   `json:"long_submitted"`
}

func newTraceEvent(ap ceremony.Applied) TraceEvent {
	return TraceEvent{
		Seq:            ap.Seq,
		Event:          ceremony.Kind(ap.Event),
		Epoch:          ap.State.Epoch,
		Flips:          len(ap.State.Flips),
		Current:        ap.State.Current,
		Loading:        ap.State.Loading,
		CanSubmit:      ap.State.CanSubmit,
		ShortSubmitted: ap.State.ShortSubmitted,
		LongSubmitted:  ap.State.LongSubmitted,
	}
}

// FinalState summarizes where a run ended: the store's last snapshot plus
// what the ports recorded. final_state assertions match against these fields
// by their JSON names.
type FinalState struct {
	Epoch          uint32 `json:"epoch"`
	Loading        bool   `json:"loading"`
	CanSubmit      bool   `json:"can_submit"`
	ShortSubmitted bool   `json:"short_submitted"`
	LongSubmitted  bool   `json:"long_submitted"`
	Flips          int    `json:"flips"`
	Current        int    `json:"current"`
	LastError      string `json:"last_error,omitempty"`

	ShortSubmissions int      `json:"short_submissions"`
	LongSubmissions  int      `json:"long_submissions"`
	Resets           []uint32 `json:"resets,omitempty"`
	Archives         int      `json:"archives"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step executed and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains all applied events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// Final is the state summary the assertions were evaluated against.
	Final FinalState `json:"final"`
}

// NewResult creates an empty result that starts out passing; assertion
// failures flip it.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
