package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/perales/rite/internal/ceremony"
)

// Scenario defines one scripted ceremony run. A scenario seeds the persisted
// validation record, installs the flips the scripted gateway serves, drives
// the assembly through a sequence of steps and asserts on the resulting
// event trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Epoch seeds the persisted validation record the client restores from.
	Epoch uint32 `yaml:"epoch"`

	// ShortSubmitted and LongSubmitted seed the persisted submission flags.
	ShortSubmitted bool `yaml:"short_submitted,omitempty"`
	LongSubmitted  bool `yaml:"long_submitted,omitempty"`

	// Flips lists what the scripted gateway serves: the session hash list,
	// plus hex content for the hashes that have it from the start. A flip
	// without hex stays unresolved until a serve step installs its payload.
	Flips []FlipStub `yaml:"flips,omitempty"`

	// Steps drive the run. Each step carries exactly one directive.
	Steps []Step `yaml:"steps"`

	// Assertions are checked once the steps have run, against the recorded
	// trace and the store's final snapshot. Supported types: event_contains,
	// event_order, event_count, final_state.
	Assertions []Assertion `yaml:"assertions"`
}

// FlipStub is one flip served by the scripted gateway.
type FlipStub struct {
	// Hash is the content hash in the served hash list.
	Hash string `yaml:"hash"`

	// Hex is the flip's wire payload. Empty means the gateway has no content
	// for this hash yet.
	Hex string `yaml:"hex,omitempty"`

	// Ready marks the hash-list entry ready. Defaults to true.
	Ready *bool `yaml:"ready,omitempty"`
}

// Step is one scripted input. Exactly one field must be set.
type Step struct {
	// Phase advances the validation cycle.
	Phase *PhaseStep `yaml:"phase,omitempty"`

	// Tick delivers a seconds-remaining countdown value.
	Tick *int `yaml:"tick,omitempty"`

	// Answer answers the flip under the cursor: left, right, none or
	// inappropriate. The session must be loaded first.
	Answer string `yaml:"answer,omitempty"`

	// Report marks the current flip inappropriate and advances the cursor.
	Report bool `yaml:"report,omitempty"`

	// Next and Prev move the cursor.
	Next bool `yaml:"next,omitempty"`
	Prev bool `yaml:"prev,omitempty"`

	// Pick moves the cursor to an absolute index.
	Pick *int `yaml:"pick,omitempty"`

	// Serve installs gateway content for a hash mid-run.
	Serve *ServeStep `yaml:"serve,omitempty"`

	// Wait blocks until a named condition holds. Conditions: session_loaded,
	// session_decoded, can_submit, short_submitted, long_submitted,
	// epoch:<n>, archives:<n>.
	Wait string `yaml:"wait,omitempty"`

	// Settle sleeps for the given milliseconds. Used to assert that nothing
	// happens: a blocked submission has no condition to wait on.
	Settle int `yaml:"settle,omitempty"`
}

// PhaseStep is a scripted phase change.
type PhaseStep struct {
	Epoch  uint32 `yaml:"epoch"`
	Period string `yaml:"period"`
}

// ServeStep installs content for a hash on the scripted gateway.
type ServeStep struct {
	Hash string `yaml:"hash"`
	Hex  string `yaml:"hex"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type selects the assertion:
	//   - "event_contains": the event kind appears in the trace
	//   - "event_order": the event kinds appear in this relative order
	//   - "event_count": the event kind appears exactly N times
	//   - "final_state": final state fields match expected values
	Type string `yaml:"type"`

	// Event is the event kind (used by event_contains, event_count).
	Event string `yaml:"event,omitempty"`

	// Events is the expected kind order (used by event_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (used by event_count).
	Count int `yaml:"count,omitempty"`

	// Expect maps final-state fields to expected values (used by
	// final_state). Subset match: only listed fields are checked. Fields:
	// epoch, loading, can_submit, short_submitted, long_submitted, flips,
	// current, last_error, short_submissions, long_submissions, resets,
	// archives.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
)

// Wait condition names.
const (
	waitSessionLoaded  = "session_loaded"
	waitSessionDecoded = "session_decoded"
	waitCanSubmit      = "can_submit"
	waitShortSubmitted = "short_submitted"
	waitLongSubmitted  = "long_submitted"

	waitEpochPrefix    = "epoch:"
	waitArchivesPrefix = "archives:"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected, so a typo like "assertion:" fails loudly instead of being
// silently ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and every step and assertion.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, stub := range s.Flips {
		if stub.Hash == "" {
			return fmt.Errorf("flips[%d]: hash is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	// The trace is compared byte for byte against golden files, so every run
	// must end at a quiescent point: the last step has to block until the
	// pipeline settles.
	last := s.Steps[len(s.Steps)-1]
	if last.Wait == "" && last.Settle == 0 {
		return fmt.Errorf("steps must end with a wait or settle step")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that a step carries exactly one directive and that the
// directive parses.
func validateStep(index int, step *Step) error {
	directives := 0
	if step.Phase != nil {
		directives++
		if _, err := parsePeriod(step.Phase.Period); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if step.Tick != nil {
		directives++
		if *step.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick must be non-negative", index)
		}
	}
	if step.Answer != "" {
		directives++
		if _, err := parseAnswer(step.Answer); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if step.Report {
		directives++
	}
	if step.Next {
		directives++
	}
	if step.Prev {
		directives++
	}
	if step.Pick != nil {
		directives++
		if *step.Pick < 0 {
			return fmt.Errorf("steps[%d]: pick must be non-negative", index)
		}
	}
	if step.Serve != nil {
		directives++
		if step.Serve.Hash == "" || step.Serve.Hex == "" {
			return fmt.Errorf("steps[%d]: serve requires hash and hex", index)
		}
	}
	if step.Wait != "" {
		directives++
		if err := validateWait(step.Wait); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if step.Settle != 0 {
		directives++
		if step.Settle < 0 {
			return fmt.Errorf("steps[%d]: settle must be positive", index)
		}
	}

	if directives == 0 {
		return fmt.Errorf("steps[%d]: step carries no directive", index)
	}
	if directives > 1 {
		return fmt.Errorf("steps[%d]: step carries %d directives, want exactly one", index, directives)
	}
	return nil
}

// validateAssertion checks that an assertion carries the fields its type
// needs, so a bad scenario fails at load rather than mid-replay.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
		if !knownEvents[a.Event] {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Event)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, kind := range a.Events {
			if !knownEvents[kind] {
				return fmt.Errorf("assertions[%d]: unknown event kind %q", index, kind)
			}
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if !knownEvents[a.Event] {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Event)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for key := range a.Expect {
			if !knownStateFields[key] {
				return fmt.Errorf("assertions[%d]: unknown final_state field %q", index, key)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// knownEvents lists the trace kinds assertions may name, matching what
// ceremony.Kind produces.
var knownEvents = map[string]bool{
	"validation_loaded":       true,
	"flip_fetch_started":      true,
	"flips_fetched":           true,
	"missing_flips_fetched":   true,
	"flip_fetch_failed":       true,
	"prev_flip":               true,
	"next_flip":               true,
	"pick_flip":               true,
	"flip_answered":           true,
	"flip_reported":           true,
	"short_answers_submitted": true,
	"long_answers_submitted":  true,
	"epoch_reset":             true,
}

func parsePeriod(name string) (ceremony.Period, error) {
	switch name {
	case "none":
		return ceremony.PeriodNone, nil
	case "flip_lottery":
		return ceremony.PeriodFlipLottery, nil
	case "short_session":
		return ceremony.PeriodShortSession, nil
	case "long_session":
		return ceremony.PeriodLongSession, nil
	case "after_long_session":
		return ceremony.PeriodAfterLongSession, nil
	default:
		return 0, fmt.Errorf("unknown period %q", name)
	}
}

func parseAnswer(name string) (ceremony.Answer, error) {
	switch name {
	case "none":
		return ceremony.AnswerNone, nil
	case "left":
		return ceremony.AnswerLeft, nil
	case "right":
		return ceremony.AnswerRight, nil
	case "inappropriate":
		return ceremony.AnswerInappropriate, nil
	default:
		return 0, fmt.Errorf("unknown answer %q", name)
	}
}

// validateWait checks a wait condition name without binding it to a run.
func validateWait(name string) error {
	switch name {
	case waitSessionLoaded, waitSessionDecoded, waitCanSubmit, waitShortSubmitted, waitLongSubmitted:
		return nil
	}
	for _, prefix := range []string{waitEpochPrefix, waitArchivesPrefix} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			if _, err := strconv.ParseUint(rest, 10, 32); err != nil {
				return fmt.Errorf("wait %q: %q is not a number", name, rest)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown wait condition %q", name)
}
