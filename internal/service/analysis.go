package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moodmeter/moodmeter/internal/classifier"
	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository"
)

// CreditsPerAnalysis is the price of one classification.
const CreditsPerAnalysis = 1

// CreditLedger is the subset of the ledger used by the gateway.
type CreditLedger interface {
	Reserve(ctx context.Context, accountID string, amount int) (*model.Reservation, int, error)
	Commit(ctx context.Context, res *model.Reservation, endpoint model.Endpoint) (int, error)
	Release(ctx context.Context, res *model.Reservation) (int, error)
}

// Classifier is the loaded sentiment model.
type Classifier interface {
	Ready() bool
	Classify(ctx context.Context, text string) (classifier.Result, error)
}

// AnalysisInput is one classification request.
type AnalysisInput struct {
	Account  *model.Account // resolved by the auth middleware; nil if none
	Text     string
	Endpoint model.Endpoint
}

// AnalysisResult is the outcome of a charged classification.
type AnalysisResult struct {
	Text             string
	Label            string
	Confidence       float64
	CreditsRemaining int
}

// AnalysisGateway charges and runs classifications for both entry points.
type AnalysisGateway struct {
	ledger     CreditLedger
	classifier Classifier
	timeout    time.Duration
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewAnalysisGateway creates a new AnalysisGateway. timeout bounds each
// classifier call.
func NewAnalysisGateway(ledger CreditLedger, c Classifier, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *AnalysisGateway {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisGateway{
		ledger:     ledger,
		classifier: c,
		timeout:    timeout,
		logger:     logger.With("component", "analysis"),
		metrics:    recorder,
	}
}

// Ready reports whether the classifier loaded.
func (g *AnalysisGateway) Ready() bool {
	return g.classifier != nil && g.classifier.Ready()
}

// Analyze classifies input.Text and charges the account one credit.
// A failed classification is never charged.
func (g *AnalysisGateway) Analyze(ctx context.Context, input AnalysisInput) (*AnalysisResult, error) {
	endpoint := string(input.Endpoint)

	if input.Account == nil {
		return nil, ErrUnauthenticated
	}
	if !input.Endpoint.IsValid() {
		return nil, fmt.Errorf("unknown endpoint %q", input.Endpoint)
	}
	if !input.Account.HasCredits(CreditsPerAnalysis) {
		g.metrics.IncAnalysis(endpoint, metrics.OutcomeInsufficientCredits)
		return nil, ErrInsufficientCredits
	}
	if !g.Ready() {
		g.metrics.IncAnalysis(endpoint, metrics.OutcomeClassifierUnavailable)
		return nil, ErrClassifierUnavailable
	}
	if strings.TrimSpace(input.Text) == "" {
		g.metrics.IncAnalysis(endpoint, metrics.OutcomeInvalidInput)
		return nil, fieldError("text", "is required")
	}

	res, _, err := g.ledger.Reserve(ctx, input.Account.ID, CreditsPerAnalysis)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCredits):
			g.metrics.IncAnalysis(endpoint, metrics.OutcomeInsufficientCredits)
			return nil, ErrInsufficientCredits
		case errors.Is(err, repository.ErrAccountNotFound):
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("reserve credits: %w", err)
	}

	// Settlement must complete even if the client goes away.
	settleCtx := context.WithoutCancel(ctx)

	prediction, err := g.classify(ctx, input.Text)
	if err != nil {
		if _, relErr := g.ledger.Release(settleCtx, res); relErr != nil {
			g.logger.Error("failed to release reservation",
				"reservation_id", res.ID,
				"account_id", res.AccountID,
				"error", relErr,
			)
		}

		if errors.Is(err, classifier.ErrUnavailable) {
			g.metrics.IncAnalysis(endpoint, metrics.OutcomeClassifierUnavailable)
			return nil, ErrClassifierUnavailable
		}

		g.logger.Warn("classification failed",
			"account_id", input.Account.ID,
			"endpoint", endpoint,
			"error", err,
		)
		g.metrics.IncAnalysis(endpoint, metrics.OutcomeClassifierError)
		return nil, fmt.Errorf("%w: %v", ErrClassifierError, err)
	}

	remaining, err := g.ledger.Commit(settleCtx, res, input.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}

	g.metrics.IncAnalysis(endpoint, metrics.OutcomeSuccess)
	return &AnalysisResult{
		Text:             input.Text,
		Label:            prediction.Label,
		Confidence:       prediction.Score,
		CreditsRemaining: remaining,
	}, nil
}

func (g *AnalysisGateway) classify(ctx context.Context, text string) (classifier.Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.classifier.Classify(ctx, text)
	g.metrics.ObserveClassifierDuration(time.Since(start))
	return res, err
}
