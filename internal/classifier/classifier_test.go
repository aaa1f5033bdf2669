package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

type stubModel struct {
	res Result
	err error
}

func (s stubModel) Classify(context.Context, string) (Result, error) {
	return s.res, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_NotReady(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("model download failed")
	h := NewHandle(DriverHTTP, nil, loadErr)

	if h.Ready() {
		t.Fatal("handle with load error should not be ready")
	}
	if !errors.Is(h.Err(), loadErr) {
		t.Errorf("Err() = %v, want %v", h.Err(), loadErr)
	}
	if _, err := h.Classify(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Classify() error = %v, want ErrUnavailable", err)
	}
	if err := h.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping() error = %v, want ErrUnavailable", err)
	}
}

func TestHandle_NilSafe(t *testing.T) {
	t.Parallel()

	var h *Handle
	if h.Ready() {
		t.Error("nil handle should not be ready")
	}
	if _, err := h.Classify(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Classify() on nil handle error = %v, want ErrUnavailable", err)
	}
}

func TestHandle_Normalizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        Result
		wantLabel string
		wantScore float64
		wantErr   bool
	}{
		{"upper cases label", Result{"positive", 0.9}, "POSITIVE", 0.9, false},
		{"trims label", Result{" negative ", 0.7}, "NEGATIVE", 0.7, false},
		{"clamps high", Result{"POSITIVE", 1.2}, "POSITIVE", 1, false},
		{"clamps low", Result{"NEGATIVE", -0.1}, "NEGATIVE", 0, false},
		{"empty label", Result{"", 0.5}, "", 0, true},
		{"NaN score", Result{"POSITIVE", math.NaN()}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandle(DriverLexicon, stubModel{res: tt.in}, nil)
			got, err := h.Classify(context.Background(), "text")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Label != tt.wantLabel || got.Score != tt.wantScore {
				t.Errorf("Classify() = %+v, want {%s %v}", got, tt.wantLabel, tt.wantScore)
			}
		})
	}
}

func TestHandle_PropagatesModelError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	h := NewHandle(DriverLexicon, stubModel{err: boom}, nil)

	if _, err := h.Classify(context.Background(), "text"); !errors.Is(err, boom) {
		t.Errorf("Classify() error = %v, want %v", err, boom)
	}
}

func TestLoad_Drivers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		wantReady bool
	}{
		{"lexicon", Config{Driver: DriverLexicon}, true},
		{"unknown", Config{Driver: "onnx"}, false},
		{"http without url", Config{Driver: DriverHTTP}, false},
		{"http unreachable", Config{Driver: DriverHTTP, URL: "http://127.0.0.1:1/predict"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := Load(context.Background(), tt.cfg, discardLogger())
			if h == nil {
				t.Fatal("Load() returned nil handle")
			}
			if h.Ready() != tt.wantReady {
				t.Errorf("Ready() = %v, want %v (err: %v)", h.Ready(), tt.wantReady, h.Err())
			}
		})
	}
}
