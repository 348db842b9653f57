// Package harness runs scripted ceremony scenarios against the live client
// assembly: the real store, trigger, epoch watcher and fetcher, wired to
// scripted phase and tick sources and in-memory ports. Every applied event is
// captured as a trace for assertions and golden comparison, so a scenario
// documents the exact event history a sequence of inputs produces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files:
//
//	name: short-session-autosubmit
//	description: "Answers are submitted once at the deadline tick"
//	epoch: 5
//	flips:
//	  - hash: reddit
//	    hex: "0xcac584696d6741c3c28001"
//	steps:
//	  - phase: { epoch: 5, period: short_session }
//	  - wait: session_loaded
//	  - answer: left
//	  - tick: 1
//	  - wait: short_submitted
//	assertions:
//	  - type: event_count
//	    event: short_answers_submitted
//	    count: 1
//	  - type: final_state
//	    expect: { epoch: 5, short_submitted: true }
//
// # Steps
//
// Each step carries exactly one directive:
//
//   - phase: advance the validation cycle to an epoch and period
//   - tick: deliver a seconds-remaining countdown value
//   - answer / report / next / prev / pick: participant input
//   - serve: install gateway content for a hash mid-run
//   - wait: block until a named condition holds
//   - settle: sleep, for asserting that nothing happens
//
// Participant input steps require a loaded session; dispatching them against
// an empty one is a scenario bug and panics, matching the reducer contract.
// Every scenario must end on a wait or settle step so the trace is quiescent
// when it is captured.
//
// # Assertion Types
//
//   - event_contains: an event kind appears in the trace
//   - event_order: event kinds appear in the given relative order
//   - event_count: an event kind appears exactly N times
//   - final_state: final state fields match expected values (subset match)
//
// # Determinism
//
// The trace only changes when the store applies an event, and scenarios
// advance through wait barriers, so a well-formed scenario produces the same
// trace on every run. Golden files under testdata/golden hold the expected
// traces; regenerate them with:
//
//	go test ./internal/harness -update
package harness
