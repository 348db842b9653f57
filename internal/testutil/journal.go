package testutil

import (
	"context"
	"sync"

	"github.com/perales/rite/internal/ceremony"
)

// Attempt is one recorded RecordAttempt call.
type Attempt struct {
	Token   string
	Kind    ceremony.SessionKind
	Epoch   uint32
	Answers []ceremony.AnswerRecord
}

// MemoryJournal is a ceremony.AttemptJournal that records every submission
// attempt the trigger makes.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryJournal struct {
	mu       sync.Mutex
	attempts []Attempt
	fail     int
}

// NewMemoryJournal creates an always-accepting journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// RecordAttempt implements ceremony.AttemptJournal.
func (m *MemoryJournal) RecordAttempt(_ context.Context, token string, kind ceremony.SessionKind, epoch uint32, answers []ceremony.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return ErrScripted
	}
	m.attempts = append(m.attempts, Attempt{
		Token:   token,
		Kind:    kind,
		Epoch:   epoch,
		Answers: answers,
	})
	return nil
}

// FailNext makes the next n writes return ErrScripted.
func (m *MemoryJournal) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = n
}

// Attempts returns the recorded attempts in order.
func (m *MemoryJournal) Attempts() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}
