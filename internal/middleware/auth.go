package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/service"
)

// KeyResolver maps a raw API key to its owning account.
type KeyResolver interface {
	ResolveKey(ctx context.Context, token string) (*model.Account, error)
}

// SessionResolver maps a session ID to its account.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*model.Account, error)
}

// APIKeyAuthConfig holds configuration for the API key middleware.
type APIKeyAuthConfig struct {
	Logger *slog.Logger
	Keys   KeyResolver
}

// APIKeyAuth returns a middleware that authenticates API requests.
// The Authorization header carries the raw key; a "Bearer " prefix is tolerated.
func APIKeyAuth(cfg APIKeyAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractAPIKey(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_key")
				writeAPIError(w, http.StatusUnauthorized, "API key required")
				return
			}

			account, err := cfg.Keys.ResolveKey(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidKey) {
					logAuthFailure(cfg.Logger, r, "invalid_key")
					writeAPIError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				cfg.Logger.Error("key resolution failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAPIError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			authCtx := &model.AuthContext{
				Account:   account,
				Method:    model.AuthMethodAPIKey,
				KeyPrefix: keyPrefix(token),
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("account_id", account.ID),
				slog.String("key_prefix", authCtx.KeyPrefix),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionConfig holds configuration for the session loader.
type SessionConfig struct {
	Logger     *slog.Logger
	Sessions   SessionResolver
	CookieName string
}

// LoadSession resolves the session cookie, if any, into an AuthContext.
// Requests without a valid session pass through unauthenticated; the
// Require* guards decide how to reject them.
func LoadSession(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			account, err := cfg.Sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					next.ServeHTTP(w, r)
					return
				}
				cfg.Logger.Error("session resolution failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
				return
			}

			ctx := auth.ContextWithAuth(r.Context(), &model.AuthContext{
				Account:   account,
				Method:    model.AuthMethodSession,
				SessionID: cookie.Value,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSessionPage redirects requests without a session to loginPath.
func RequireSessionPage(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasSession(r) {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSessionJSON rejects requests without a session with a 401 envelope.
func RequireSessionJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasSession(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Login required"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasSession(r *http.Request) bool {
	authCtx := auth.AuthFromContext(r.Context())
	return authCtx != nil && authCtx.Method == model.AuthMethodSession && authCtx.Account != nil
}

// extractAPIKey returns the raw key from the Authorization header.
func extractAPIKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, ok := strings.CutPrefix(key, "Bearer "); ok {
		key = strings.TrimSpace(rest)
	}
	return key
}

func keyPrefix(token string) string {
	if len(token) < auth.TokenPrefixLen {
		return token
	}
	return token[:auth.TokenPrefixLen]
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAPIError writes the flat {"error": "..."} body used on the API path.
func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
