// Package auth provides password authentication and JWT sessions.
// The authenticated user is the "self" participant of every ledger operation.
package auth

import (
	"context"

	"github.com/mmynk/debtbook/internal/models"
)

// Authenticator resolves ledger owners.
type Authenticator interface {
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// Lookup returns the owner behind a validated token subject.
	// ErrUnknownUser is returned once the account no longer exists.
	Lookup(ctx context.Context, userID string) (*models.User, error)

	// ChangePassword and DeleteAccount require the current password again.
	ChangePassword(ctx context.Context, userID, current, next string) error
	DeleteAccount(ctx context.Context, userID, credential string) error
}
