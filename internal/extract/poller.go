package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

// JobState tracks the polling lifecycle of one extraction job.
type JobState int

const (
	JobPending JobState = iota
	JobPolling
	JobCompleted
	JobFailed
	JobTimedOut
)

// String returns a human-readable representation of the job state.
func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobPolling:
		return "polling"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

type pollResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Poll drives the job through its state machine: each attempt moves
// Pending -> Polling, and the service's answer settles it as Completed,
// Failed, or (once the attempt budget runs out) TimedOut. Completed jobs
// have their per-locator result arrays flattened into one record list.
// This is the only suspending operation in the pipeline.
func (c *Client) Poll(ctx context.Context, jobURL string) ([]models.RawRecord, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		state, data, err := c.checkOnce(ctx, jobURL)
		if err != nil {
			// Transient transport problems count against the attempt
			// budget, like any other non-terminal poll.
			c.log.Debug("poll attempt failed",
				slog.Int("attempt", attempt),
				slog.Any("err", err),
			)
			state = JobPolling
		}

		switch state {
		case JobCompleted:
			records := flattenResults(data)
			c.log.Debug("extraction job completed",
				slog.Int("attempt", attempt),
				slog.Int("records", len(records)),
			)
			return records, nil
		case JobFailed:
			return nil, fmt.Errorf("%w: reported by service on attempt %d", ErrJobFailed, attempt)
		}

		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, c.interval); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJobTimedOut, err)
		}
	}

	return nil, fmt.Errorf("%w: after %d attempts (state %s)", ErrJobTimedOut, c.maxAttempts, JobTimedOut)
}

func (c *Client) checkOnce(ctx context.Context, jobURL string) (JobState, json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return JobPending, nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return JobPending, nil, fmt.Errorf("poll job: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return JobPending, nil, fmt.Errorf("poll job status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed pollResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return JobPending, nil, fmt.Errorf("decode poll response: %w", err)
	}

	switch parsed.Status {
	case "completed":
		return JobCompleted, parsed.Data, nil
	case "failed":
		return JobFailed, nil, nil
	default:
		return JobPolling, nil, nil
	}
}

// flattenResults collapses the job payload into one flat record list. The
// service returns one result element per source locator; each element can be
// a record array, a wrapper object holding a record array, or a bare record.
func flattenResults(data json.RawMessage) []models.RawRecord {
	if len(data) == 0 {
		return nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		// Payload was a single object rather than an array.
		elements = []json.RawMessage{data}
	}

	var out []models.RawRecord
	for _, el := range elements {
		out = append(out, flattenElement(el)...)
	}
	return out
}

var wrapperKeys = []string{"programmes", "courses", "records", "items"}

func flattenElement(el json.RawMessage) []models.RawRecord {
	var list []models.RawRecord
	if err := json.Unmarshal(el, &list); err == nil {
		return list
	}

	var obj models.RawRecord
	if err := json.Unmarshal(el, &obj); err != nil || len(obj) == 0 {
		return nil
	}

	for _, key := range wrapperKeys {
		nested, ok := obj[key].([]any)
		if !ok {
			continue
		}
		var out []models.RawRecord
		for _, item := range nested {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, models.RawRecord(rec))
			}
		}
		return out
	}

	return []models.RawRecord{obj}
}
