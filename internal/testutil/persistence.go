package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/perales/rite/internal/ceremony"
)

// ErrScripted is returned by doubles whose next calls were failed on purpose.
var ErrScripted = errors.New("testutil: scripted failure")

// MemoryPersistence is an in-memory ceremony.Persistence with the same
// observable semantics as the sqlite adapter: only epoch, answers and
// submitted flags are durable, and GetValidation hands back a fresh session
// around them.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryPersistence struct {
	mu             sync.Mutex
	epoch          uint32
	shortAnswers   []ceremony.AnswerRecord
	longAnswers    []ceremony.AnswerRecord
	shortSubmitted bool
	longSubmitted  bool

	shortWrites [][]ceremony.AnswerRecord
	longWrites  [][]ceremony.AnswerRecord
	resets      []uint32
	failSets    int
	failResets  int
}

// NewMemoryPersistence seeds the store from a snapshot's durable fields.
func NewMemoryPersistence(initial ceremony.State) *MemoryPersistence {
	return &MemoryPersistence{
		epoch:          initial.Epoch,
		shortAnswers:   initial.ShortAnswers,
		longAnswers:    initial.LongAnswers,
		shortSubmitted: initial.ShortSubmitted,
		longSubmitted:  initial.LongSubmitted,
	}
}

// GetValidation implements ceremony.Persistence.
func (m *MemoryPersistence) GetValidation(context.Context) (ceremony.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := ceremony.NewState(m.epoch)
	st.ShortAnswers = m.shortAnswers
	st.LongAnswers = m.longAnswers
	st.ShortSubmitted = m.shortSubmitted
	st.LongSubmitted = m.longSubmitted
	return st, nil
}

// ResetValidation implements ceremony.Persistence.
func (m *MemoryPersistence) ResetValidation(_ context.Context, epoch uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failResets > 0 {
		m.failResets--
		return ErrScripted
	}
	m.epoch = epoch
	m.shortAnswers = nil
	m.longAnswers = nil
	m.shortSubmitted = false
	m.longSubmitted = false
	m.resets = append(m.resets, epoch)
	return nil
}

// SetShortAnswers implements ceremony.Persistence.
func (m *MemoryPersistence) SetShortAnswers(_ context.Context, answers []ceremony.AnswerRecord, epoch uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSets > 0 {
		m.failSets--
		return ErrScripted
	}
	m.epoch = epoch
	m.shortAnswers = answers
	m.shortSubmitted = true
	m.shortWrites = append(m.shortWrites, answers)
	return nil
}

// SetLongAnswers implements ceremony.Persistence.
func (m *MemoryPersistence) SetLongAnswers(_ context.Context, answers []ceremony.AnswerRecord, epoch uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSets > 0 {
		m.failSets--
		return ErrScripted
	}
	m.epoch = epoch
	m.longAnswers = answers
	m.longSubmitted = true
	m.longWrites = append(m.longWrites, answers)
	return nil
}

// FailNextSets makes the next n answer writes return ErrScripted.
func (m *MemoryPersistence) FailNextSets(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSets = n
}

// FailNextResets makes the next n resets return ErrScripted.
func (m *MemoryPersistence) FailNextResets(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failResets = n
}

// Resets returns the epochs passed to successful ResetValidation calls.
func (m *MemoryPersistence) Resets() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, len(m.resets))
	copy(out, m.resets)
	return out
}

// ShortWrites returns the payloads of successful SetShortAnswers calls.
func (m *MemoryPersistence) ShortWrites() [][]ceremony.AnswerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ceremony.AnswerRecord, len(m.shortWrites))
	copy(out, m.shortWrites)
	return out
}

// LongWrites returns the payloads of successful SetLongAnswers calls.
func (m *MemoryPersistence) LongWrites() [][]ceremony.AnswerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ceremony.AnswerRecord, len(m.longWrites))
	copy(out, m.longWrites)
	return out
}
