package models

import (
	"fmt"
	"time"
)

// Account is a chat participant identity. Exactly one of PasswordHash and
// FederatedID is set.
type Account struct {
	ID             string
	Email          string
	PasswordHash   string // empty for federated accounts
	FederatedID    string // empty for password accounts
	FailedAttempts int
	IsBlocked      bool
	BlockReason    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the authentication-means invariant
func (a *Account) Validate() error {
	hasPassword := a.PasswordHash != ""
	hasFederated := a.FederatedID != ""

	if hasPassword == hasFederated {
		return fmt.Errorf("%w: account must have exactly one of password or federated id", ErrValidation)
	}
	if a.Email == "" {
		return fmt.Errorf("%w: account email is required", ErrValidation)
	}
	if a.FailedAttempts < 0 {
		return fmt.Errorf("%w: failed attempts cannot be negative", ErrValidation)
	}
	return nil
}

// IsFederated reports whether the account authenticates through an external provider
func (a *Account) IsFederated() bool {
	return a.FederatedID != ""
}
