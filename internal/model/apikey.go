package model

import "time"

// APIKey binds an opaque bearer token to exactly one account.
// Only the SHA-256 digest of the token is persisted.
type APIKey struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	TokenDigest string    `json:"-"`
	TokenPrefix string    `json:"token_prefix"`
	CreatedAt   time.Time `json:"created_at"`
}

// APIKeyResponse is the dashboard view of a key (without secrets).
type APIKeyResponse struct {
	ID          string    `json:"id"`
	TokenPrefix string    `json:"token_prefix"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts an APIKey to APIKeyResponse.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:          k.ID,
		TokenPrefix: k.TokenPrefix,
		CreatedAt:   k.CreatedAt,
	}
}

// GenerateKeyResponse is returned once, when a key is issued.
type GenerateKeyResponse struct {
	APIKey string `json:"api_key"`
}
