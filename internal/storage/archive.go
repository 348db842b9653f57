package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/perales/rite/internal/ceremony"
)

// ArchiveFlips moves an outgoing epoch's flips into cold storage. All rows
// land in one transaction; (epoch, hash) conflicts are ignored, which makes
// the repeated handovers after a failed epoch reset harmless.
func (s *Store) ArchiveFlips(ctx context.Context, epoch uint32, flips []ceremony.Flip) error {
	if len(flips) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive flips: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flip_archive (epoch, hash, ready, pics, orders, answer)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(epoch, hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("archive flips: %w", err)
	}
	defer stmt.Close()

	for _, flip := range flips {
		picsJSON, err := picsToJSON(flip.Pics)
		if err != nil {
			return fmt.Errorf("archive flip %s: %w", flip.Hash, err)
		}
		ordersJSON, err := ordersToJSON(flip.Orders)
		if err != nil {
			return fmt.Errorf("archive flip %s: %w", flip.Hash, err)
		}

		var answer sql.NullInt64
		if flip.Answer != nil {
			answer = sql.NullInt64{Int64: int64(*flip.Answer), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, epoch, flip.Hash, flip.Ready, picsJSON, ordersJSON, answer); err != nil {
			return fmt.Errorf("archive flip %s: %w", flip.Hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive flips: %w", err)
	}
	return nil
}

// ArchivedFlips reads an epoch's cold storage back, ordered by hash.
func (s *Store) ArchivedFlips(ctx context.Context, epoch uint32) ([]ceremony.Flip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, ready, pics, orders, answer
		FROM flip_archive
		WHERE epoch = ?
		ORDER BY hash ASC
	`, epoch)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var flips []ceremony.Flip
	for rows.Next() {
		var (
			flip       ceremony.Flip
			picsJSON   string
			ordersJSON string
			answer     sql.NullInt64
		)
		if err := rows.Scan(&flip.Hash, &flip.Ready, &picsJSON, &ordersJSON, &answer); err != nil {
			return nil, fmt.Errorf("scan archived flip: %w", err)
		}
		if flip.Pics, err = picsFromJSON(picsJSON); err != nil {
			return nil, fmt.Errorf("scan archived flip %s: %w", flip.Hash, err)
		}
		if flip.Orders, err = ordersFromJSON(ordersJSON); err != nil {
			return nil, fmt.Errorf("scan archived flip %s: %w", flip.Hash, err)
		}
		if answer.Valid {
			a := ceremony.Answer(answer.Int64)
			flip.Answer = &a
		}
		flips = append(flips, flip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive: %w", err)
	}

	if flips == nil {
		flips = []ceremony.Flip{}
	}
	return flips, nil
}
