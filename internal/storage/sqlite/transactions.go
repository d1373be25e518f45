package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/debtbook/internal/models"
	"github.com/mmynk/debtbook/internal/storage"
)

// AppendTransaction appends tx and applies it to the person's balance in one
// database transaction. The balance is incremented in SQL, never written back
// from an earlier read.
func (s *SQLiteStore) AppendTransaction(ctx context.Context, ownerID, personID string, tx *models.Transaction) (float64, error) {
	if !tx.Type.Valid() {
		return 0, fmt.Errorf("invalid transaction type %q", tx.Type)
	}
	if tx.Amount <= 0 {
		return 0, fmt.Errorf("transaction amount must be positive, got %v", tx.Amount)
	}
	// Generate ID if not set
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Timestamp == 0 {
		tx.Timestamp = time.Now().Unix()
	}
	if tx.Date == "" {
		tx.Date = time.Unix(tx.Timestamp, 0).Format(models.DateLayout)
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx,
		"UPDATE people SET total_debt = ROUND(total_debt + ?, 2) WHERE id = ? AND owner_id = ?",
		tx.SignedAmount(), personID, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("person %s: %w", personID, storage.ErrNotFound)
	}

	var method any
	if tx.Method != "" {
		method = tx.Method
	}
	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO transactions (id, person_id, seq, type, amount, description, date, timestamp, method)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions WHERE person_id = ?), ?, ?, ?, ?, ?, ?)`,
		tx.ID, personID, personID, string(tx.Type), tx.Amount, tx.Description, tx.Date, tx.Timestamp, method,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}

	var total float64
	if err := dbtx.QueryRowContext(ctx, "SELECT total_debt FROM people WHERE id = ?", personID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return total, nil
}

// DeleteTransaction removes the transaction at position and reverses its effect.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, ownerID, personID string, position int) error {
	if position < 0 {
		return storage.ErrInvalidPosition
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	var exists int
	err = dbtx.QueryRowContext(ctx, "SELECT 1 FROM people WHERE id = ? AND owner_id = ?", personID, ownerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("person %s: %w", personID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check person existence: %w", err)
	}

	var tx models.Transaction
	err = dbtx.QueryRowContext(ctx,
		"SELECT id, type, amount FROM transactions WHERE person_id = ? ORDER BY seq LIMIT 1 OFFSET ?",
		personID, position,
	).Scan(&tx.ID, &tx.Type, &tx.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrInvalidPosition
	}
	if err != nil {
		return fmt.Errorf("failed to get transaction: %w", err)
	}

	if _, err := dbtx.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", tx.ID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if _, err := dbtx.ExecContext(ctx,
		"UPDATE people SET total_debt = ROUND(total_debt - ?, 2) WHERE id = ?",
		tx.SignedAmount(), personID,
	); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
