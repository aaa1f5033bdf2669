// Package classifier wraps the sentiment model behind a load-once handle.
//
// The model is loaded a single time at process start. A failed load is
// permanent for the life of the process: every Classify call then returns
// ErrUnavailable without retrying.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// Drivers accepted by Load.
const (
	DriverHTTP    = "http"
	DriverLexicon = "lexicon"
)

// Labels emitted by the built-in drivers.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
)

// ErrUnavailable is returned when the model failed to load.
var ErrUnavailable = errors.New("classifier unavailable")

// Result is a single sentiment prediction.
type Result struct {
	Label string  // upper case
	Score float64 // confidence in [0,1]
}

// Classifier predicts the sentiment of a text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Handle is the process-wide classifier slot.
type Handle struct {
	driver string
	model  Classifier
	err    error
}

// NewHandle wraps an already loaded model, or records why loading failed
// when err is non-nil.
func NewHandle(driver string, model Classifier, err error) *Handle {
	if err == nil && model == nil {
		err = errors.New("no model")
	}
	return &Handle{driver: driver, model: model, err: err}
}

// Ready reports whether the model loaded.
func (h *Handle) Ready() bool {
	return h != nil && h.err == nil
}

// Err returns the load error, or nil when ready.
func (h *Handle) Err() error {
	if h == nil {
		return ErrUnavailable
	}
	return h.err
}

// Driver returns the configured driver name.
func (h *Handle) Driver() string {
	if h == nil {
		return ""
	}
	return h.driver
}

// Classify runs the model and normalizes its output.
func (h *Handle) Classify(ctx context.Context, text string) (Result, error) {
	if !h.Ready() {
		return Result{}, ErrUnavailable
	}

	res, err := h.model.Classify(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return normalize(res)
}

// Ping reports the load state for readiness checks.
func (h *Handle) Ping(context.Context) error {
	if !h.Ready() {
		return fmt.Errorf("%w: %v", ErrUnavailable, h.Err())
	}
	return nil
}

// Config selects and configures the model driver.
type Config struct {
	Driver      string
	URL         string
	HealthURL   string
	Token       string
	Timeout     time.Duration // per request
	LoadTimeout time.Duration
	HTTPClient  *http.Client // optional
}

// Load builds the configured model and verifies it is reachable.
// It never returns nil; a failure is recorded in the handle.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "classifier", "driver", cfg.Driver)

	if cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
	}

	start := time.Now()
	model, err := build(ctx, cfg)
	if err != nil {
		logger.Error("classifier failed to load, analysis disabled", "error", err)
		return NewHandle(cfg.Driver, nil, err)
	}

	logger.Info("classifier loaded", "duration", time.Since(start))
	return NewHandle(cfg.Driver, model, nil)
}

func build(ctx context.Context, cfg Config) (Classifier, error) {
	switch cfg.Driver {
	case DriverLexicon:
		return NewLexicon(), nil
	case DriverHTTP:
		c, err := NewHTTP(cfg)
		if err != nil {
			return nil, err
		}
		if err := c.WarmUp(ctx); err != nil {
			return nil, fmt.Errorf("warm up: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classifier driver %q", cfg.Driver)
	}
}

func normalize(res Result) (Result, error) {
	label := strings.ToUpper(strings.TrimSpace(res.Label))
	if label == "" {
		return Result{}, errors.New("classifier returned empty label")
	}

	score := res.Score
	switch {
	case math.IsNaN(score):
		return Result{}, errors.New("classifier returned NaN score")
	case score < 0:
		score = 0
	case score > 1:
		score = 1
	}

	return Result{Label: label, Score: score}, nil
}
