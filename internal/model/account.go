// Package model defines domain entities for the application.
package model

import "time"

// DefaultCredits is the balance granted to a newly registered account.
const DefaultCredits = 100

// Account is a registered user and the owner of a credit balance.
type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	CredentialHash string    `json:"-"` // Argon2id PHC string, never serialized
	Credits        int       `json:"credits"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasCredits reports whether the balance covers amount.
func (a *Account) HasCredits(amount int) bool {
	return a.Credits >= amount
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts an Account to AccountResponse.
func (a *Account) ToResponse() AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Credits:   a.Credits,
		CreatedAt: a.CreatedAt,
	}
}

// Authentication methods recorded in AuthContext.
const (
	AuthMethodSession = "session"
	AuthMethodAPIKey  = "api_key"
)

// AuthContext holds the identity resolved for a request.
// It is injected into the request context by the auth middleware.
type AuthContext struct {
	Account *Account
	Method  string
	// SessionID is set for session-authenticated requests.
	SessionID string
	// KeyPrefix is set for API key requests; the full token is never kept.
	KeyPrefix string
}

// AccountID returns the resolved account ID, or "" when unauthenticated.
func (a *AuthContext) AccountID() string {
	if a == nil || a.Account == nil {
		return ""
	}
	return a.Account.ID
}
