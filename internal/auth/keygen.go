package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Token shape: 32 random bytes, base64url without padding (43 chars).
const (
	TokenBytes     = 32
	TokenLength    = 43
	TokenPrefixLen = 8
)

var tokenFormatRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// GeneratedToken contains a newly generated bearer token.
type GeneratedToken struct {
	Plaintext string // Full token (show once only)
	Digest    string // SHA-256 hex digest for storage and lookup
	Prefix    string // Visible prefix for display
}

// GenerateToken creates a 256-bit URL-safe random token.
// Uniqueness comes from entropy; callers do not retry.
func GenerateToken() (*GeneratedToken, error) {
	raw := make([]byte, TokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	return &GeneratedToken{
		Plaintext: plaintext,
		Digest:    TokenDigest(plaintext),
		Prefix:    plaintext[:TokenPrefixLen],
	}, nil
}

// TokenDigest returns the SHA-256 hex digest of a token.
// This is the only form in which tokens are stored and looked up.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateTokenFormat checks if the token has the generated shape.
func ValidateTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
