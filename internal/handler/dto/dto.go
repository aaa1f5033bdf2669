// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import (
	"time"

	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/service"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Text *string `json:"text"`
}

// AnalyzeResponse is a successful classification. Fields are declared in
// alphabetical order so the encoded keys come out sorted.
type AnalyzeResponse struct {
	Confidence       float64 `json:"confidence"`
	CreditsRemaining int     `json:"credits_remaining"`
	Sentiment        string  `json:"sentiment"`
	Text             string  `json:"text"`
}

// ToAnalyzeResponse converts a gateway result to AnalyzeResponse.
func ToAnalyzeResponse(res *service.AnalysisResult) AnalyzeResponse {
	return AnalyzeResponse{
		Confidence:       res.Confidence,
		CreditsRemaining: res.CreditsRemaining,
		Sentiment:        res.Label,
		Text:             res.Text,
	}
}

// APIError is the flat error body of the API path.
type APIError struct {
	Error string `json:"error"`
}

// ErrorResponse is the error envelope of the web path.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine-readable code and a human message.
// Details maps form fields to validation messages.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// UsageResponse is a usage record as shown on the dashboard.
type UsageResponse struct {
	Endpoint    model.Endpoint `json:"endpoint"`
	CreditsUsed int            `json:"credits_used"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ToUsageResponses converts usage records for display.
func ToUsageResponses(records []*model.UsageRecord) []UsageResponse {
	out := make([]UsageResponse, 0, len(records))
	for _, r := range records {
		out = append(out, UsageResponse{
			Endpoint:    r.Endpoint,
			CreditsUsed: r.CreditsUsed,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

// ToKeyResponses converts API keys for display, without secrets.
func ToKeyResponses(keys []*model.APIKey) []model.APIKeyResponse {
	out := make([]model.APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.ToResponse())
	}
	return out
}
