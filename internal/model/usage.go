package model

import (
	"slices"
	"time"
)

// Endpoint identifies the surface that consumed credits.
type Endpoint string

// Endpoint values stored on usage records.
const (
	EndpointWebAnalyze Endpoint = "web_analyze"
	EndpointAPIAnalyze Endpoint = "api_analyze"
)

// ValidEndpoints contains all valid endpoint values.
var ValidEndpoints = []Endpoint{EndpointWebAnalyze, EndpointAPIAnalyze}

// IsValid reports whether e is a known endpoint.
func (e Endpoint) IsValid() bool {
	return slices.Contains(ValidEndpoints, e)
}

// UsageRecord is an append-only audit entry of one classification.
type UsageRecord struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Endpoint    Endpoint  `json:"endpoint"`
	CreditsUsed int       `json:"credits_used"`
	CreatedAt   time.Time `json:"created_at"`
}
