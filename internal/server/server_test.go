package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestServer_ShutdownOrder(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	srv.OnShutdown("sweeper", record("sweeper"))
	srv.OnShutdown("cache", record("cache"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunContext(ctx) }()

	waitForListener(t, srv)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunContext returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "cache" || order[1] != "sweeper" {
		t.Errorf("shutdown order = %v, want [cache sweeper]", order)
	}
}

func TestServer_ShutdownErrorsJoined(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	srv.OnShutdown("a", func(context.Context) error { return errA })
	srv.OnShutdown("b", func(context.Context) error { return errB })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunContext(ctx) }()

	waitForListener(t, srv)
	cancel()

	err := <-done
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("RunContext error = %v, want both component errors", err)
	}
}

func waitForListener(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, port, err := net.SplitHostPort(srv.Addr()); err == nil && port != "0" {
			resp, err := http.Get("http://127.0.0.1:" + port + "/")
			if err == nil {
				_ = resp.Body.Close()
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start listening")
}
