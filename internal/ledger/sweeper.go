package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepBatch is the max reservations released per tick.
const DefaultSweepBatch = 100

// Sweeper periodically refunds expired reservations.
type Sweeper struct {
	ledger   *Ledger
	interval time.Duration
	batch    int
	logger   *slog.Logger

	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(l *Ledger, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		ledger:   l,
		interval: interval,
		batch:    DefaultSweepBatch,
		logger:   logger.With("component", "ledger.sweeper"),
	}
}

// Start launches the sweep loop in its own goroutine. The loop runs until
// ctx is cancelled or Shutdown is called. A sweeper starts at most once.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.stopped:
		return errors.New("sweeper already shut down")
	case s.started:
		return errors.New("sweeper already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)
	return nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.logger.Info("reservation sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep drains expired reservations in batches.
func (s *Sweeper) sweep(ctx context.Context) {
	for {
		n, err := s.ledger.ReleaseExpired(ctx, s.batch)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("sweep failed", "error", err)
			}
			return
		}
		if n < s.batch {
			return
		}
	}
}

// Shutdown stops the sweeper and waits for the current sweep to finish.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		s.logger.Info("reservation sweeper shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn("reservation sweeper shutdown timed out")
		return ctx.Err()
	}
}
