package auth

import (
	"context"

	"github.com/moodmeter/moodmeter/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// AccountFromContext returns the authenticated account, or nil.
func AccountFromContext(ctx context.Context) *model.Account {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return nil
	}
	return auth.Account
}

// AccountIDFromContext is a convenience function to get the account ID.
// Returns empty string if not authenticated.
func AccountIDFromContext(ctx context.Context) string {
	return AuthFromContext(ctx).AccountID()
}
