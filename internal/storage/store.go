// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/debtbook/internal/models"
)

var (
	// ErrNotFound is returned when a person or user does not exist in the
	// caller's namespace.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPosition is returned when a transaction position is out of range.
	ErrInvalidPosition = errors.New("transaction position out of range")
)

// Store defines the interface for ledger storage operations.
// Every person operation is scoped by ownerID, the user whose ledger it is.
type Store interface {
	// CreatePerson persists a new person.
	// The person.ID and person.CreatedAt fields are populated by the store.
	CreatePerson(ctx context.Context, person *models.Person) error

	// GetPerson retrieves a person with their full transaction history.
	GetPerson(ctx context.Context, ownerID, personID string) (*models.Person, error)

	// ListPeople retrieves every person of the owner, with transactions, ordered by name.
	ListPeople(ctx context.Context, ownerID string) ([]*models.Person, error)

	// DeletePerson removes a person and their history.
	DeletePerson(ctx context.Context, ownerID, personID string) error

	// AppendTransaction atomically appends tx to the person's history and applies
	// its signed amount to the stored balance. It returns the new balance.
	// The update is computed inside the store, so concurrent appends never lose writes.
	AppendTransaction(ctx context.Context, ownerID, personID string, tx *models.Transaction) (float64, error)

	// DeleteTransaction removes the transaction at the 0-based position of the
	// person's history and reverses its effect on the balance.
	DeleteTransaction(ctx context.Context, ownerID, personID string, position int) error

	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdateUserPassword replaces the stored password hash.
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	// DeleteUser removes the user together with their people and history.
	DeleteUser(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
