// Package storage provides SQLite-backed durable state for the validation
// client.
//
// Three tables:
//   - validation: singleton row holding epoch, answer sets and submitted
//     flags. This row is the restart-safety record: the ceremony trigger
//     consults the flags loaded from it before ever submitting.
//   - submission_attempts: forensic journal, one row per trigger firing,
//     keyed by attempt token and written before delivery.
//   - flip_archive: cold storage for outgoing epochs' flip content, keyed
//     by (epoch, hash) so repeated archive runs stay idempotent.
//
// Writes that may repeat (attempts, archive rows) use ON CONFLICT DO
// NOTHING; the singleton row is only ever updated in place.
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Answer sets and flip content are stored as JSON columns; the shapes match
// the ceremony package's wire tags.
package storage
