// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/debtbook/internal/models"
	"github.com/mmynk/debtbook/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every connection the pool opens.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; funnel everything through one connection so
	// parallel ledger commits queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePerson persists a new person to the database.
func (s *SQLiteStore) CreatePerson(ctx context.Context, person *models.Person) error {
	// Generate ID if not set
	if person.ID == "" {
		person.ID = uuid.New().String()
	}
	if person.CreatedAt == 0 {
		person.CreatedAt = time.Now().Unix()
	}
	person.Name = strings.TrimSpace(person.Name)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO people (id, owner_id, name, total_debt, is_summary, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		person.ID, person.OwnerID, person.Name, person.TotalDebt, person.IsSummary, person.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}

	return nil
}

// GetPerson retrieves a person by ID, including the transaction history.
func (s *SQLiteStore) GetPerson(ctx context.Context, ownerID, personID string) (*models.Person, error) {
	person := &models.Person{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, total_debt, is_summary, created_at FROM people WHERE id = ? AND owner_id = ?",
		personID, ownerID,
	).Scan(&person.ID, &person.OwnerID, &person.Name, &person.TotalDebt, &person.IsSummary, &person.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", personID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	txs, err := s.transactionsByPerson(ctx,
		`SELECT person_id, id, type, amount, description, date, timestamp, method
		 FROM transactions WHERE person_id = ? ORDER BY seq`,
		personID,
	)
	if err != nil {
		return nil, err
	}
	person.Transactions = txs[personID]

	return person, nil
}

// ListPeople retrieves all people of an owner with their transactions.
func (s *SQLiteStore) ListPeople(ctx context.Context, ownerID string) ([]*models.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, total_debt, is_summary, created_at
		 FROM people WHERE owner_id = ? ORDER BY name, created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}

	var people []*models.Person
	for rows.Next() {
		p := &models.Person{}
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.TotalDebt, &p.IsSummary, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	// Close before the next query; the pool has a single connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}

	txs, err := s.transactionsByPerson(ctx,
		`SELECT t.person_id, t.id, t.type, t.amount, t.description, t.date, t.timestamp, t.method
		 FROM transactions t JOIN people p ON p.id = t.person_id
		 WHERE p.owner_id = ? ORDER BY t.person_id, t.seq`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		p.Transactions = txs[p.ID]
	}

	return people, nil
}

// DeletePerson removes a person; their transactions cascade.
func (s *SQLiteStore) DeletePerson(ctx context.Context, ownerID, personID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM people WHERE id = ? AND owner_id = ?", personID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("person %s: %w", personID, storage.ErrNotFound)
	}
	return nil
}

// transactionsByPerson runs a query selecting
// (person_id, id, type, amount, description, date, timestamp, method)
// and groups the rows by person.
func (s *SQLiteStore) transactionsByPerson(ctx context.Context, query string, args ...any) (map[string][]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.Transaction)
	for rows.Next() {
		var personID string
		var tx models.Transaction
		var method sql.NullString
		if err := rows.Scan(&personID, &tx.ID, &tx.Type, &tx.Amount, &tx.Description, &tx.Date, &tx.Timestamp, &method); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if method.Valid {
			tx.Method = method.String
		}
		result[personID] = append(result[personID], tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return result, nil
}
