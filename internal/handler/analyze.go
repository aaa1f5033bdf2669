package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/handler/dto"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/service"
)

// AnalyzeHandler serves both analysis entry points. The web form and the
// JSON API share one gateway and differ only in how they authenticate and
// how failures are rendered.
type AnalyzeHandler struct {
	gateway *service.AnalysisGateway
	pages   *Pages
	logger  *slog.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(gateway *service.AnalysisGateway, pages *Pages, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{gateway: gateway, pages: pages, logger: logger}
}

// Form handles GET /analyze.
func (h *AnalyzeHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, PageAnalyze, PageData{})
}

// Web handles POST /analyze.
func (h *AnalyzeHandler) Web(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid form body")
		return
	}

	account := auth.AccountFromContext(r.Context())
	text := r.PostFormValue("text")

	res, err := h.gateway.Analyze(r.Context(), service.AnalysisInput{
		Account:  account,
		Text:     text,
		Endpoint: model.EndpointWebAnalyze,
	})
	if err != nil {
		status, body := webAnalyzeError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("web analysis failed", "account_id", auth.AccountIDFromContext(r.Context()), "error", err)
		}
		if wantsHTML(r) && status != http.StatusInternalServerError {
			h.pages.Render(w, r, status, PageAnalyze, PageData{
				Error:  body.Message,
				Fields: body.Details,
				Text:   text,
			})
			return
		}
		writeErrorDetails(w, status, body.Code, body.Message, body.Details)
		return
	}

	resp := dto.ToAnalyzeResponse(res)
	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// Show the post-charge balance in the navigation.
	shown := *account
	shown.Credits = res.CreditsRemaining
	h.pages.Render(w, r, http.StatusOK, PageAnalyze, PageData{
		Account: &shown,
		Text:    text,
		Result:  &resp,
	})
}

// API handles POST /api/analyze.
func (h *AnalyzeHandler) API(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFromContext(r.Context())

	// A missing or malformed body is reported as a missing text field, after
	// the credit and availability checks.
	var req dto.AnalyzeRequest
	var text string
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Text != nil {
		text = *req.Text
	}

	res, err := h.gateway.Analyze(r.Context(), service.AnalysisInput{
		Account:  account,
		Text:     text,
		Endpoint: model.EndpointAPIAnalyze,
	})
	if err != nil {
		status, message := apiAnalyzeError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("api analysis failed", "account_id", auth.AccountIDFromContext(r.Context()), "error", err)
		}
		writeAPIError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAnalyzeResponse(res))
}

func webAnalyzeError(err error) (int, dto.ErrorBody) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, dto.ErrorBody{Code: "VALIDATION_ERROR", Message: "Text is required", Details: verr.Fields}
	case errors.Is(err, service.ErrInsufficientCredits):
		return http.StatusPaymentRequired, dto.ErrorBody{Code: "INSUFFICIENT_CREDITS", Message: "Not enough credits. Please purchase more."}
	case errors.Is(err, service.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable, dto.ErrorBody{Code: "CLASSIFIER_UNAVAILABLE", Message: "AI service temporarily unavailable. Please try again later."}
	case errors.Is(err, service.ErrClassifierError):
		return http.StatusBadGateway, dto.ErrorBody{Code: "CLASSIFIER_ERROR", Message: "AI service error. You were not charged."}
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, dto.ErrorBody{Code: "UNAUTHORIZED", Message: "Login required"}
	default:
		return http.StatusInternalServerError, dto.ErrorBody{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
	}
}

func apiAnalyzeError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "Text field required"
	case errors.Is(err, service.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "Not enough credits"
	case errors.Is(err, service.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable, "AI service temporarily unavailable"
	case errors.Is(err, service.ErrClassifierError):
		return http.StatusBadGateway, "AI service error"
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrAccountNotFound):
		return http.StatusUnauthorized, "Invalid API key"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
