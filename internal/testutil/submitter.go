package testutil

import (
	"context"
	"sync"

	"github.com/perales/rite/internal/ceremony"
)

// MemorySubmitter is a ceremony.Submitter that records delivered payloads.
//
// Thread-safety: all methods are safe for concurrent use.
type MemorySubmitter struct {
	mu    sync.Mutex
	short [][]ceremony.AnswerRecord
	long  [][]ceremony.AnswerRecord
	fail  int
}

// NewMemorySubmitter creates an always-accepting submitter.
func NewMemorySubmitter() *MemorySubmitter {
	return &MemorySubmitter{}
}

// SubmitShortAnswers implements ceremony.Submitter.
func (m *MemorySubmitter) SubmitShortAnswers(_ context.Context, answers []ceremony.AnswerRecord, _, _ int) error {
	return m.accept(&m.short, answers)
}

// SubmitLongAnswers implements ceremony.Submitter.
func (m *MemorySubmitter) SubmitLongAnswers(_ context.Context, answers []ceremony.AnswerRecord, _, _ int) error {
	return m.accept(&m.long, answers)
}

func (m *MemorySubmitter) accept(dst *[][]ceremony.AnswerRecord, answers []ceremony.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return ErrScripted
	}
	*dst = append(*dst, answers)
	return nil
}

// FailNext makes the next n deliveries return ErrScripted.
func (m *MemorySubmitter) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = n
}

// ShortPayloads returns the accepted short-session payloads in order.
func (m *MemorySubmitter) ShortPayloads() [][]ceremony.AnswerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ceremony.AnswerRecord, len(m.short))
	copy(out, m.short)
	return out
}

// LongPayloads returns the accepted long-session payloads in order.
func (m *MemorySubmitter) LongPayloads() [][]ceremony.AnswerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ceremony.AnswerRecord, len(m.long))
	copy(out, m.long)
	return out
}
