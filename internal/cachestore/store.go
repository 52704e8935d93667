package cachestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

// Store persists cache entries in Elasticsearch, one document per
// (category, search_query) key. Index requests replace the whole document
// atomically, which gives the upsert the last-writer-wins semantics the
// orchestrator relies on.
type Store struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// New instantiates the store client.
func New(addr, index string, logger *slog.Logger) (*Store, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{es: es, index: index, log: logger}, nil
}

// Ping checks if Elasticsearch is available.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Upsert replaces or inserts the entry for its composite key. A merge run
// may read entries written moments earlier in the same request, so the
// write waits for the refresh instead of leaving visibility to chance.
func (s *Store) Upsert(ctx context.Context, entry models.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: entry.Key(),
		Body:       bytes.NewReader(payload),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("upsert cache entry failed: %s", strings.TrimSpace(string(body)))
	}

	s.log.Debug("cache entry upserted",
		slog.String("key", entry.Key()),
		slog.Int("programmes", len(entry.EducationData)),
	)
	return nil
}

// ReadEntry fetches a single cache entry by its composite key. A missing
// document returns (nil, nil).
func (s *Store) ReadEntry(ctx context.Context, category, searchQuery string) (*models.CacheEntry, error) {
	key := models.CacheEntry{Category: category, SearchQuery: searchQuery}.Key()

	req := esapi.GetRequest{Index: s.index, DocumentID: key}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get cache entry failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Source models.CacheEntry `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &parsed.Source, nil
}

// ReadUnexpired returns every entry whose expires_at lies after now, sorted
// by last_refreshed descending so that merge deduplication keeps the
// freshest copy of a duplicate title.
func (s *Store) ReadUnexpired(ctx context.Context, now time.Time) ([]models.CacheEntry, error) {
	body := map[string]any{
		"size": 500,
		"query": map[string]any{
			"range": map[string]any{
				"expires_at": map[string]any{
					"gt": now.UTC().Format(time.RFC3339),
				},
			},
		},
		"sort": []map[string]any{
			{"last_refreshed": map[string]any{"order": "desc"}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search cache entries: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search cache entries failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.CacheEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	entries := make([]models.CacheEntry, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	return entries, nil
}

// DeleteExpired removes entries whose expires_at has passed, using batched
// delete-by-query. It loops until a batch deletes fewer documents than the
// requested batchSize. Readers already filter on expires_at, so this is
// garbage collection, not a correctness mechanism.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	cutoff := now.UTC().Format(time.RFC3339)
	totalDeleted := int64(0)

	for {
		body := map[string]any{
			"query": map[string]any{
				"range": map[string]any{
					"expires_at": map[string]any{
						"lte": cutoff,
					},
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return totalDeleted, fmt.Errorf("marshal delete body: %w", err)
		}

		res, err := s.es.DeleteByQuery(
			[]string{s.index},
			bytes.NewReader(payload),
			s.es.DeleteByQuery.WithContext(ctx),
			s.es.DeleteByQuery.WithWaitForCompletion(true),
			s.es.DeleteByQuery.WithConflicts("proceed"),
			s.es.DeleteByQuery.WithScrollSize(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return totalDeleted, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
		}

		var parsed struct {
			Deleted int64 `json:"deleted"`
		}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			res.Body.Close()
			return totalDeleted, fmt.Errorf("decode delete response: %w", err)
		}
		res.Body.Close()

		totalDeleted += parsed.Deleted

		if parsed.Deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}

// Health pings the cluster to ensure connectivity.
func (s *Store) Health(ctx context.Context) error {
	res, err := s.es.Cluster.Health(s.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}
