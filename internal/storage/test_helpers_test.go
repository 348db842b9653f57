package storage

import (
	"path/filepath"
	"testing"

	"github.com/perales/rite/internal/ceremony"
)

// createTestStore opens a store on a throwaway database file.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func answerPtr(a ceremony.Answer) *ceremony.Answer {
	return &a
}

// testAnswers is a small payload with one of each real answer code.
func testAnswers() []ceremony.AnswerRecord {
	return []ceremony.AnswerRecord{
		{Answer: ceremony.AnswerLeft},
		{Answer: ceremony.AnswerNone},
		{Answer: ceremony.AnswerRight},
		{Answer: ceremony.AnswerInappropriate},
	}
}
