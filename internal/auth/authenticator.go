// Package auth handles member accounts: credential checks and session tokens.
package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator verifies member credentials. Ledger services only see the
// member ID it produces, so the credential scheme can change underneath.
type Authenticator interface {
	// Register creates an account for email and returns it.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account whose credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// Lookup returns the account with the given ID.
	Lookup(ctx context.Context, id string) (*models.User, error)

	// ValidateCredential reports whether credential is acceptable for a new account.
	ValidateCredential(credential string) error
}
