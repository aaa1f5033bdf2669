package classifier

import (
	"context"
	"testing"
)

func TestLexicon_Classify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text      string
		wantLabel string
	}{
		{"I love this", LabelPositive},
		{"This is terrible and I hate it", LabelNegative},
		{"not good", LabelNegative},
		{"I don't hate it", LabelPositive},
		{"the sky is blue", LabelPositive},
		{"GREAT product!!!", LabelPositive},
	}

	l := NewLexicon()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			got, err := l.Classify(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Classify(%q).Label = %q, want %q", tt.text, got.Label, tt.wantLabel)
			}
			if got.Score < 0.5 || got.Score > 1 {
				t.Errorf("Classify(%q).Score = %v, want in [0.5,1]", tt.text, got.Score)
			}
		})
	}
}

func TestLexicon_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLexicon().Classify(ctx, "good"); err == nil {
		t.Error("Classify() with cancelled context should fail")
	}
}
