package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/service"
)

func TestAnalyzeResponse_SortedKeys(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(ToAnalyzeResponse(&service.AnalysisResult{
		Text:             "I love this",
		Label:            "POSITIVE",
		Confidence:       0.75,
		CreditsRemaining: 99,
	}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"confidence":0.75,"credits_remaining":99,"sentiment":"POSITIVE","text":"I love this"}`
	if string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(ErrorResponse{Error: ErrorBody{Code: "EMAIL_EXISTS", Message: "Email already exists"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"error":{"code":"EMAIL_EXISTS","message":"Email already exists"}}`
	if string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestToKeyResponses_HidesDigest(t *testing.T) {
	t.Parallel()

	keys := []*model.APIKey{{
		ID:          "k1",
		AccountID:   "a1",
		TokenDigest: "secret-digest",
		TokenPrefix: "abcdEFGH",
		CreatedAt:   time.Unix(0, 0).UTC(),
	}}

	body, err := json.Marshal(ToKeyResponses(keys))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got := string(body); got != `[{"id":"k1","token_prefix":"abcdEFGH","created_at":"1970-01-01T00:00:00Z"}]` {
		t.Errorf("body = %s", got)
	}
}
