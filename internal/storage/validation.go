package storage

import (
	"context"
	"fmt"

	"github.com/perales/rite/internal/ceremony"
)

// GetValidation loads the persisted validation record into a fresh state.
// Session fields are not persisted; they come back as a new session waiting
// on its first fetch.
func (s *Store) GetValidation(ctx context.Context) (ceremony.State, error) {
	var (
		epoch          uint32
		shortJSON      string
		longJSON       string
		shortSubmitted bool
		longSubmitted  bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT epoch, short_answers, long_answers, short_submitted, long_submitted
		FROM validation
		WHERE id = 1
	`).Scan(&epoch, &shortJSON, &longJSON, &shortSubmitted, &longSubmitted)
	if err != nil {
		return ceremony.State{}, fmt.Errorf("read validation: %w", err)
	}

	state := ceremony.NewState(epoch)
	state.ShortSubmitted = shortSubmitted
	state.LongSubmitted = longSubmitted

	if state.ShortAnswers, err = answersFromJSON(shortJSON); err != nil {
		return ceremony.State{}, fmt.Errorf("read validation: %w", err)
	}
	if state.LongAnswers, err = answersFromJSON(longJSON); err != nil {
		return ceremony.State{}, fmt.Errorf("read validation: %w", err)
	}
	return state, nil
}

// ResetValidation rolls the record into a new epoch: both answer sets and
// both flags are dropped.
func (s *Store) ResetValidation(ctx context.Context, epoch uint32) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE validation
		SET epoch = ?,
		    short_answers = '[]',
		    long_answers = '[]',
		    short_submitted = 0,
		    long_submitted = 0
		WHERE id = 1
	`, epoch)
	if err != nil {
		return fmt.Errorf("reset validation: %w", err)
	}
	return nil
}

// SetShortAnswers records a delivered short session payload and raises the
// flag that stops the session from submitting again.
func (s *Store) SetShortAnswers(ctx context.Context, answers []ceremony.AnswerRecord, epoch uint32) error {
	return s.setAnswers(ctx, "short_answers", "short_submitted", answers, epoch)
}

// SetLongAnswers is the long session counterpart of SetShortAnswers.
func (s *Store) SetLongAnswers(ctx context.Context, answers []ceremony.AnswerRecord, epoch uint32) error {
	return s.setAnswers(ctx, "long_answers", "long_submitted", answers, epoch)
}

func (s *Store) setAnswers(ctx context.Context, answersCol, flagCol string, answers []ceremony.AnswerRecord, epoch uint32) error {
	raw, err := answersToJSON(answers)
	if err != nil {
		return fmt.Errorf("set %s: %w", answersCol, err)
	}

	// Column names come from the two callers above, never from input.
	query := fmt.Sprintf(`
		UPDATE validation
		SET %s = ?, %s = 1, epoch = ?
		WHERE id = 1
	`, answersCol, flagCol)

	if _, err := s.db.ExecContext(ctx, query, raw, epoch); err != nil {
		return fmt.Errorf("set %s: %w", answersCol, err)
	}
	return nil
}
