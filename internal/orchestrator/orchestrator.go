package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradeskills/course-radar/backend/internal/analytics"
	"github.com/tradeskills/course-radar/backend/internal/catalog"
	"github.com/tradeskills/course-radar/backend/internal/dedupe"
	"github.com/tradeskills/course-radar/backend/internal/models"
	"github.com/tradeskills/course-radar/backend/internal/normalize"
)

// Cache keys for the cross-batch entries.
const (
	MergedCategory = "all"
	MergedQuery    = "merged"
	FullQuery      = "comprehensive-education-full"
)

// Dispatcher submits one extraction job covering a batch's source URLs.
type Dispatcher interface {
	Dispatch(ctx context.Context, urls []string, prompt string) (string, error)
}

// Poller drives a dispatched job to a terminal state.
type Poller interface {
	Poll(ctx context.Context, jobURL string) ([]models.RawRecord, error)
}

// Store is the slice of the cache store the orchestrator needs.
type Store interface {
	Upsert(ctx context.Context, entry models.CacheEntry) error
	ReadEntry(ctx context.Context, category, searchQuery string) (*models.CacheEntry, error)
	ReadUnexpired(ctx context.Context, now time.Time) ([]models.CacheEntry, error)
}

// Orchestrator is the single entry point of the pipeline: it runs one batch,
// all batches, or the merge, and owns every cache write.
type Orchestrator struct {
	dispatcher Dispatcher
	poller     Poller
	store      Store
	normalizer *normalize.Normalizer
	log        *slog.Logger
	cacheTTL   time.Duration
	now        func() time.Time
}

// Options wires an Orchestrator's collaborators.
type Options struct {
	Dispatcher Dispatcher
	Poller     Poller
	Store      Store
	Normalizer *normalize.Normalizer
	Log        *slog.Logger
	CacheTTL   time.Duration
	Now        func() time.Time
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New()
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 168 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		dispatcher: opts.Dispatcher,
		poller:     opts.Poller,
		store:      opts.Store,
		normalizer: opts.Normalizer,
		log:        opts.Log,
		cacheTTL:   opts.CacheTTL,
		now:        opts.Now,
	}
}

// Run executes one refresh request. Upstream extraction failures are
// recovered with fallback data and never surface to the caller; only an
// invalid batch number or a failed cache write is an error.
func (o *Orchestrator) Run(ctx context.Context, req models.RefreshRequest) (models.RefreshResponse, error) {
	runID := uuid.NewString()
	log := o.log.With(slog.String("run_id", runID))
	start := o.now()

	switch {
	case req.MergeAll:
		return o.mergeAll(ctx, log, start)
	case req.Batch != 0:
		return o.runSingle(ctx, log, start, req)
	default:
		return o.runFull(ctx, log, start, req)
	}
}

func (o *Orchestrator) runSingle(ctx context.Context, log *slog.Logger, start time.Time, req models.RefreshRequest) (models.RefreshResponse, error) {
	batch, err := catalog.Get(req.Batch)
	if err != nil {
		return models.RefreshResponse{}, err
	}

	searchQuery := fmt.Sprintf("batch-%d", batch.Number)
	if !req.ForceRefresh {
		if cached := o.freshEntry(ctx, log, batch.Category, searchQuery); cached != nil {
			return models.RefreshResponse{
				Success:         true,
				Batch:           batch.Number,
				BatchName:       batch.Name,
				TotalProgrammes: len(cached.EducationData),
				Elapsed:         o.now().Sub(start).String(),
				Analytics:       cached.AnalyticsData,
			}, nil
		}
	}

	programmes := o.collectBatch(ctx, log, batch)
	stats := analytics.Aggregate(programmes)

	if err := o.upsert(ctx, batch.Category, searchQuery, programmes, stats); err != nil {
		return models.RefreshResponse{}, err
	}

	log.Info("batch refresh completed",
		slog.Int("batch", batch.Number),
		slog.Int("programmes", len(programmes)),
	)

	return models.RefreshResponse{
		Success:         true,
		Batch:           batch.Number,
		BatchName:       batch.Name,
		TotalProgrammes: len(programmes),
		Elapsed:         o.now().Sub(start).String(),
		Analytics:       stats,
	}, nil
}

func (o *Orchestrator) runFull(ctx context.Context, log *slog.Logger, start time.Time, req models.RefreshRequest) (models.RefreshResponse, error) {
	if !req.ForceRefresh {
		if cached := o.freshEntry(ctx, log, MergedCategory, FullQuery); cached != nil {
			return models.RefreshResponse{
				Success:         true,
				TotalProgrammes: len(cached.EducationData),
				Elapsed:         o.now().Sub(start).String(),
				Analytics:       cached.AnalyticsData,
				Data:            cached.EducationData,
			}, nil
		}
	}

	var all []models.Programme
	for _, batch := range catalog.All() {
		programmes := o.collectBatch(ctx, log, batch)
		stats := analytics.Aggregate(programmes)

		// Each batch keeps its own cache key, so a later batch failing the
		// store write leaves earlier batches intact.
		searchQuery := fmt.Sprintf("batch-%d", batch.Number)
		if err := o.upsert(ctx, batch.Category, searchQuery, programmes, stats); err != nil {
			return models.RefreshResponse{}, err
		}

		all = append(all, programmes...)
	}

	all = dedupe.ByTitle(all)
	stats := analytics.Aggregate(all)

	if err := o.upsert(ctx, MergedCategory, FullQuery, all, stats); err != nil {
		return models.RefreshResponse{}, err
	}

	log.Info("full refresh completed",
		slog.Int("batches", catalog.Count()),
		slog.Int("programmes", len(all)),
	)

	return models.RefreshResponse{
		Success:         true,
		TotalProgrammes: len(all),
		Elapsed:         o.now().Sub(start).String(),
		Analytics:       stats,
		Data:            all,
	}, nil
}

// mergeAll is the Merge Coordinator: it unions every unexpired cache entry
// into one deduplicated "all"/"merged" entry. The store returns entries
// sorted by last_refreshed descending, so the freshest copy of a duplicate
// title wins.
func (o *Orchestrator) mergeAll(ctx context.Context, log *slog.Logger, start time.Time) (models.RefreshResponse, error) {
	entries, err := o.store.ReadUnexpired(ctx, o.now())
	if err != nil {
		return models.RefreshResponse{}, fmt.Errorf("read cache entries: %w", err)
	}

	var all []models.Programme
	for _, entry := range entries {
		// The merged entry itself is excluded so repeated merges stay
		// idempotent rather than self-amplifying.
		if entry.Category == MergedCategory {
			continue
		}
		all = append(all, entry.EducationData...)
	}

	all = dedupe.ByTitle(all)
	stats := analytics.Aggregate(all)

	if err := o.upsert(ctx, MergedCategory, MergedQuery, all, stats); err != nil {
		return models.RefreshResponse{}, err
	}

	log.Info("merge completed",
		slog.Int("entries", len(entries)),
		slog.Int("programmes", len(all)),
	)

	return models.RefreshResponse{
		Success:         true,
		TotalProgrammes: len(all),
		Elapsed:         o.now().Sub(start).String(),
		Analytics:       stats,
	}, nil
}

// collectBatch runs dispatch and poll for one batch, substituting the
// batch's fallback records on any upstream failure or an empty result.
func (o *Orchestrator) collectBatch(ctx context.Context, log *slog.Logger, batch catalog.Batch) []models.Programme {
	raw, err := o.extractBatch(ctx, batch)
	if err != nil || len(raw) == 0 {
		if err != nil {
			log.Warn("extraction unavailable, using fallback data",
				slog.Int("batch", batch.Number),
				slog.Any("err", err),
			)
		} else {
			log.Warn("extraction returned no records, using fallback data",
				slog.Int("batch", batch.Number),
			)
		}
		raw = batch.Fallback
	}

	return o.normalizer.NormalizeAll(raw, batch)
}

func (o *Orchestrator) extractBatch(ctx context.Context, batch catalog.Batch) ([]models.RawRecord, error) {
	jobURL, err := o.dispatcher.Dispatch(ctx, batch.Sources, batch.Prompt)
	if err != nil {
		return nil, err
	}
	return o.poller.Poll(ctx, jobURL)
}

func (o *Orchestrator) upsert(ctx context.Context, category, searchQuery string, programmes []models.Programme, stats models.Analytics) error {
	now := o.now().UTC()
	entry := models.CacheEntry{
		Category:      category,
		SearchQuery:   searchQuery,
		EducationData: programmes,
		AnalyticsData: stats,
		ExpiresAt:     now.Add(o.cacheTTL),
		LastRefreshed: now,
		CacheVersion:  now.Unix(),
		RefreshStatus: models.RefreshCompleted,
	}

	if err := o.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("cache write for %s: %w", entry.Key(), err)
	}
	return nil
}

// freshEntry returns the existing unexpired entry for a key, or nil if the
// key is missing, expired, or unreadable. A read failure here only forces a
// refresh, it is never fatal.
func (o *Orchestrator) freshEntry(ctx context.Context, log *slog.Logger, category, searchQuery string) *models.CacheEntry {
	entry, err := o.store.ReadEntry(ctx, category, searchQuery)
	if err != nil {
		log.Warn("cache read failed, refreshing instead", slog.Any("err", err))
		return nil
	}
	if entry == nil || !entry.ExpiresAt.After(o.now()) {
		return nil
	}
	return entry
}

// IsValidationError reports whether the error should map to a caller
// mistake rather than a server failure.
func IsValidationError(err error) bool {
	return errors.Is(err, catalog.ErrOutOfRange)
}
