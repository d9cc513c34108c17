package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by an account access token
type TokenClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// FederatedProfile is the subset of an external provider profile needed to
// create or find a federated account.
type FederatedProfile struct {
	Provider    string
	FederatedID string
	Email       string
}
