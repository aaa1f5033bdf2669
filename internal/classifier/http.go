package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBody bounds how much of an inference response is read.
const maxResponseBody = 1 << 20

// warmUpText is classified during load when no health URL is configured.
const warmUpText = "warm up"

// HTTPClassifier calls a Hugging Face style text-classification endpoint.
//
// Request:  POST {url} {"inputs": "<text>"}
// Response: [{"label","score"}, ...] or [[{"label","score"}, ...]]
type HTTPClassifier struct {
	url       string
	healthURL string
	token     string
	timeout   time.Duration // per Classify call
	client    *http.Client
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// NewHTTP creates an HTTPClassifier from cfg.
func NewHTTP(cfg Config) (*HTTPClassifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("classifier URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Deadlines come from the caller's context: Classify applies timeout,
	// WarmUp runs under the load context.
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPClassifier{
		url:       cfg.URL,
		healthURL: cfg.HealthURL,
		token:     cfg.Token,
		timeout:   timeout,
		client:    client,
	}, nil
}

// WarmUp checks the health URL, or classifies a fixed text when none is set.
func (c *HTTPClassifier) WarmUp(ctx context.Context) error {
	if c.healthURL == "" {
		_, err := c.infer(ctx, warmUpText)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Classify sends text to the endpoint and returns the highest scoring label.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.infer(ctx, text)
}

func (c *HTTPClassifier) infer(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling classifier: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e inferenceError
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return Result{}, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, e.Error)
		}
		return Result{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	return parseInference(data)
}

func (c *HTTPClassifier) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// parseInference accepts both the flat and the batched response shapes.
func parseInference(data []byte) (Result, error) {
	var flat []labelScore
	if err := json.Unmarshal(data, &flat); err != nil {
		var nested [][]labelScore
		if err := json.Unmarshal(data, &nested); err != nil {
			return Result{}, fmt.Errorf("decoding response: %w", err)
		}
		if len(nested) == 0 {
			return Result{}, errors.New("empty classifier response")
		}
		flat = nested[0]
	}

	if len(flat) == 0 {
		return Result{}, errors.New("empty classifier response")
	}

	best := flat[0]
	for _, ls := range flat[1:] {
		if ls.Score > best.Score {
			best = ls
		}
	}

	return Result{Label: best.Label, Score: best.Score}, nil
}
