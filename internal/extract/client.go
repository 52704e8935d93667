package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrDispatch covers every submission failure: missing credential,
	// transport error, or a non-success status from the service. Callers
	// recover by substituting fallback data.
	ErrDispatch = errors.New("extraction dispatch failed")

	// ErrJobFailed is returned when the service explicitly reports failure.
	ErrJobFailed = errors.New("extraction job failed")

	// ErrJobTimedOut is returned once the poll attempt budget is exhausted.
	ErrJobTimedOut = errors.New("extraction job timed out")
)

// Client talks to the asynchronous content-extraction service: submit a job
// covering a batch's source URLs, then poll the returned handle until it
// settles.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	log         *slog.Logger
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// Options configures a Client. Sleep is injectable so tests can run the
// polling loop without real delays.
type Options struct {
	BaseURL     string
	APIKey      string
	Interval    time.Duration
	MaxAttempts int
	HTTPClient  *http.Client
	Sleep       func(ctx context.Context, d time.Duration) error
}

// New builds an extraction client.
func New(opts Options, log *slog.Logger) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 30
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepFor
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		httpClient:  opts.HTTPClient,
		log:         log,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		sleep:       opts.Sleep,
	}
}

type dispatchRequest struct {
	URLs        []string    `json:"urls"`
	Formats     []string    `json:"formats"`
	JSONOptions jsonOptions `json:"jsonOptions"`
}

type jsonOptions struct {
	Prompt string         `json:"prompt"`
	Schema map[string]any `json:"schema"`
}

type dispatchResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Dispatch submits one extraction job covering all of a batch's source URLs
// and returns the opaque status-check URL. Every failure mode maps to
// ErrDispatch.
func (c *Client) Dispatch(ctx context.Context, urls []string, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrDispatch)
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: no source urls", ErrDispatch)
	}

	payload, err := json.Marshal(dispatchRequest{
		URLs:    urls,
		Formats: []string{"json"},
		JSONOptions: jsonOptions{
			Prompt: prompt,
			Schema: recordSchema,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrDispatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/batch/extract", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrDispatch, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return "", fmt.Errorf("%w: status %d: %s", ErrDispatch, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed dispatchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrDispatch, err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("%w: response carried no job url", ErrDispatch)
	}

	c.log.Debug("extraction job dispatched", slog.String("job_id", parsed.ID), slog.Int("urls", len(urls)))
	return parsed.URL, nil
}

// recordSchema is the target record shape sent with every extraction
// request. The normalizer tolerates anything, so the schema is advisory.
var recordSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"programmes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"provider":    map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"level":       map[string]any{"type": "string"},
					"duration":    map[string]any{"type": "string"},
					"price":       map[string]any{"type": "string"},
					"study_mode":  map[string]any{"type": "string"},
					"visit_link":  map[string]any{"type": "string"},
				},
				"required": []string{"title"},
			},
		},
	},
}

func sleepFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
