package storage

import (
	"context"
	"fmt"

	"github.com/perales/rite/internal/ceremony"
)

// Attempt is one journaled submission attempt.
type Attempt struct {
	Token   string
	Kind    ceremony.SessionKind
	Epoch   uint32
	Answers []ceremony.AnswerRecord
}

// RecordAttempt journals a submission attempt. Duplicate tokens are silently
// ignored so a retried write stays idempotent.
func (s *Store) RecordAttempt(ctx context.Context, token string, kind ceremony.SessionKind, epoch uint32, answers []ceremony.AnswerRecord) error {
	raw, err := answersToJSON(answers)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submission_attempts (token, kind, epoch, answers)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, kind.String(), epoch, raw)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Attempts returns the journal for one epoch, in token order. UUIDv7 tokens
// make that attempt order.
func (s *Store) Attempts(ctx context.Context, epoch uint32) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, kind, epoch, answers
		FROM submission_attempts
		WHERE epoch = ?
		ORDER BY token ASC
	`, epoch)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a        Attempt
			kindName string
			raw      string
		)
		if err := rows.Scan(&a.Token, &kindName, &a.Epoch, &raw); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Kind = sessionKindFromName(kindName)
		if a.Answers, err = answersFromJSON(raw); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}

func sessionKindFromName(name string) ceremony.SessionKind {
	if name == "short" {
		return ceremony.ShortSession
	}
	return ceremony.LongSession
}
