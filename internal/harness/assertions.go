package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails. It carries enough
// context to debug the failure without re-running the scenario.
type AssertionError struct {
	Type     string       // which assertion kind tripped
	Expected string       // what the scenario demanded
	Actual   string       // what the replay produced
	Trace    []TraceEvent // everything the store applied, in order
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s epoch=%d flips=%d current=%d loading=%t can_submit=%t short=%t long=%t\n",
			ev.Seq, ev.Event, ev.Epoch, ev.Flips, ev.Current, ev.Loading, ev.CanSubmit, ev.ShortSubmitted, ev.LongSubmitted)
	}

	return buf.String()
}

// assertEventContains checks that the trace contains the event kind.
func assertEventContains(trace []TraceEvent, assertion Assertion) error {
	for _, ev := range trace {
		if ev.Event == assertion.Event {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %s in trace", assertion.Event),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventOrder checks that the kinds appear in the given relative order.
// They need not be consecutive; intervening events are allowed. Order is
// judged by each kind's first occurrence.
func assertEventOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		for _, kind := range assertion.Events {
			if ev.Event == kind && positions[kind] == 0 {
				positions[kind] = i + 1 // 1-indexed so zero means "never seen"
			}
		}
	}

	for _, kind := range assertion.Events {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", kind),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev, curr := assertion.Events[i-1], assertion.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertEventCount checks that the kind appears exactly the expected number
// of times, including zero.
func assertEventCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Event == assertion.Event {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks expected fields against the final state summary.
// Subset semantics: only the fields listed in Expect are compared.
func assertFinalState(result *Result, assertion Assertion) error {
	for key, expected := range assertion.Expect {
		actual, ok := finalField(result.Final, key)
		if !ok {
			// validateAssertion already screens field names; reaching this
			// means the registry and the validator disagree.
			return fmt.Errorf("final_state: unknown field %q", key)
		}
		if !valuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// knownStateFields lists the final_state fields assertions may name.
var knownStateFields = map[string]bool{
	"epoch":             true,
	"loading":           true,
	"can_submit":        true,
	"short_submitted":   true,
	"long_submitted":    true,
	"flips":             true,
	"current":           true,
	"last_error":        true,
	"short_submissions": true,
	"long_submissions":  true,
	"resets":            true,
	"archives":          true,
}

// finalField resolves a final_state field by its JSON name.
func finalField(f FinalState, key string) (any, bool) {
	switch key {
	case "epoch":
		return f.Epoch, true
	case "loading":
		return f.Loading, true
	case "can_submit":
		return f.CanSubmit, true
	case "short_submitted":
		return f.ShortSubmitted, true
	case "long_submitted":
		return f.LongSubmitted, true
	case "flips":
		return f.Flips, true
	case "current":
		return f.Current, true
	case "last_error":
		return f.LastError, true
	case "short_submissions":
		return f.ShortSubmissions, true
	case "long_submissions":
		return f.LongSubmissions, true
	case "resets":
		return f.Resets, true
	case "archives":
		return f.Archives, true
	default:
		return nil, false
	}
}

// valuesEqual compares a YAML-decoded expectation with a final state value.
// Integer widths differ between the two sides, so numbers are compared
// through int64; lists are compared element-wise.
func valuesEqual(expected, actual any) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		// A missing resets list and an expected empty one agree.
		return emptyList(expected) && emptyList(actual)
	}

	if expList, ok := asList(expected); ok {
		actList, ok := asList(actual)
		if !ok || len(expList) != len(actList) {
			return false
		}
		for i := range expList {
			if !valuesEqual(expList[i], actList[i]) {
				return false
			}
		}
		return true
	}

	if expNum, ok := asInt64(expected); ok {
		actNum, ok := asInt64(actual)
		return ok && expNum == actNum
	}

	switch exp := expected.(type) {
	case bool:
		act, ok := actual.(bool)
		return ok && exp == act
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	}
	return false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []uint32:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

func emptyList(v any) bool {
	if v == nil {
		return true
	}
	list, ok := asList(v)
	return ok && len(list) == 0
}

// EvaluateAssertions evaluates all assertions against a completed run and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertEventContains:
			err = assertEventContains(result.Trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
