// Package ceremony implements the client-side state machine for a timed
// proof-of-personhood validation ceremony.
//
// A participant is shown a sequence of flips, answers each one within a
// bounded session, and the answers are submitted exactly once per session
// before the deadline, even across restarts.
//
// ARCHITECTURE:
//
// Single-writer store:
// All state lives in a Store and changes only through events reduced by the
// pure Reduce function. The Store processes events strictly one at a time in
// its Run goroutine; producers (the submission trigger, the epoch watcher,
// the flip fetcher, a UI layer) push events onto the same serialized queue
// from any goroutine and read consistent snapshots via State().
//
// Event Union:
// Events form a closed tagged union: one struct per kind, all sealed inside
// this package. The reducer's type switch covers the union exhaustively; an
// unlisted kind cannot be constructed outside the package.
//
// Submission:
// The Trigger watches the per-second countdown and, on the tick with exactly
// one second remaining in a session, submits the session's answers if they
// were not submitted yet and at least one flip carries a real answer. The
// dispatch of the submit event happens only after the network call and the
// durable persist both succeeded, so a submitted flag always means the
// answers are on record. A crash between network success and the local
// dispatch can repeat the network submission on the next run; submission
// endpoints must treat payloads idempotently.
//
// Epochs:
// Validation state is scoped to one epoch. The EpochWatcher observes the
// externally reported epoch and, when it advances, hands the outgoing flips
// to the archiver, durably resets persistence, and dispatches the reset
// event. The epoch comparison happens in the watcher; the reducer trusts it.
package ceremony
