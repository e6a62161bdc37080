// Package client is the Go SDK for the tally daemon's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/open-tally/tally/pkg/api"
	"github.com/open-tally/tally/pkg/graph"
	"github.com/open-tally/tally/pkg/store"
)

// Client talks to a tally daemon.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  BackoffStrategy
	retries  int
}

// NewClient creates a client for the daemon at endpoint, defaulting to
// "http://127.0.0.1:8090" when empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: DefaultBackoff(),
		retries: 3,
	}
}

// CreateRound submits ballots for a new round.
func (c *Client) CreateRound(ctx context.Context, req api.CreateRoundRequest) (*api.CreateRoundResponse, error) {
	var resp api.CreateRoundResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/rounds", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRounds returns recent round summaries.
func (c *Client) ListRounds(ctx context.Context, limit int) ([]api.RoundSummary, error) {
	path := "/v1/rounds"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []api.RoundSummary
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Solve runs the solve pass for a round and returns its result.
func (c *Client) Solve(ctx context.Context, roundID string) (*store.RoundResult, error) {
	var result store.RoundResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/rounds/"+roundID+"/solve", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Result fetches the stored result of a round.
func (c *Client) Result(ctx context.Context, roundID string) (*store.RoundResult, error) {
	var result store.RoundResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/rounds/"+roundID+"/result", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Graph fetches the support graph projection of a solved round.
func (c *Client) Graph(ctx context.Context, roundID string) (*graph.Graph, error) {
	var g graph.Graph
	if err := c.doJSON(ctx, http.MethodGet, "/v1/rounds/"+roundID+"/graph", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Events fetches the latest lifecycle events.
func (c *Client) Events(ctx context.Context, limit int) ([]*store.Event, error) {
	path := "/v1/events"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []*store.Event
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks the daemon's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var status map[string]string
	return c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &status)
}

// doJSON performs one request with retries on transport errors and 5xx
// responses; 4xx responses fail immediately.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff.Next(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var reader *bytes.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		err = decodeResponse(resp, out)
		resp.Body.Close()
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code < 500 {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// StatusError is a non-2xx response from the daemon.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("daemon returned %d", e.Code)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &StatusError{Code: resp.StatusCode, Reason: body.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
