package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	keys   *service.KeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys *service.KeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, logger: logger}
}

// GenerateKey handles POST /api/generate_key. The plaintext key is in this
// response only.
func (h *APIKeyHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())

	issued, err := h.keys.IssueKey(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyLimitReached):
			writeError(w, http.StatusConflict, "KEY_LIMIT_REACHED", "API key limit reached")
		case errors.Is(err, service.ErrAccountNotFound):
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Login required")
		default:
			h.logger.Error("failed to issue API key", "account_id", accountID, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate API key")
		}
		return
	}

	h.logger.Info("api_key_issued",
		"key_id", issued.Key.ID,
		"key_prefix", issued.Key.TokenPrefix,
		"account_id", accountID,
	)

	writeJSON(w, http.StatusOK, model.GenerateKeyResponse{APIKey: issued.Token})
}
