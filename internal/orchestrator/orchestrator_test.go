package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradeskills/course-radar/backend/internal/catalog"
	"github.com/tradeskills/course-radar/backend/internal/dedupe"
	"github.com/tradeskills/course-radar/backend/internal/extract"
	"github.com/tradeskills/course-radar/backend/internal/models"
	"github.com/tradeskills/course-radar/backend/internal/normalize"
	"github.com/tradeskills/course-radar/backend/internal/orchestrator"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testTime }

type fakeExtractor struct {
	dispatchErr error
	pollErr     error
	records     map[string][]models.RawRecord // keyed by first source URL
	dispatched  int
}

func (f *fakeExtractor) Dispatch(_ context.Context, urls []string, _ string) (string, error) {
	f.dispatched++
	if f.dispatchErr != nil {
		return "", f.dispatchErr
	}
	return urls[0], nil
}

func (f *fakeExtractor) Poll(_ context.Context, jobURL string) ([]models.RawRecord, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.records[jobURL], nil
}

type fakeStore struct {
	entries   map[string]models.CacheEntry
	upsertErr error
	upserts   []models.CacheEntry
	readErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]models.CacheEntry)}
}

func (s *fakeStore) Upsert(_ context.Context, entry models.CacheEntry) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.entries[entry.Key()] = entry
	s.upserts = append(s.upserts, entry)
	return nil
}

func (s *fakeStore) ReadEntry(_ context.Context, category, searchQuery string) (*models.CacheEntry, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	entry, ok := s.entries[models.CacheEntry{Category: category, SearchQuery: searchQuery}.Key()]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *fakeStore) ReadUnexpired(_ context.Context, now time.Time) ([]models.CacheEntry, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []models.CacheEntry
	for _, entry := range s.entries {
		if entry.ExpiresAt.After(now) {
			out = append(out, entry)
		}
	}
	// Freshest first, mirroring the store's sort contract.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LastRefreshed.After(out[i].LastRefreshed) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func newOrchestrator(ext *fakeExtractor, store *fakeStore) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		Dispatcher: ext,
		Poller:     ext,
		Store:      store,
		Normalizer: normalize.NewWithClock(testClock),
		CacheTTL:   time.Hour,
		Now:        testClock,
	})
}

func TestSingleBatchOutOfRange(t *testing.T) {
	store := newFakeStore()
	o := newOrchestrator(&fakeExtractor{}, store)

	for _, n := range []int{-1, 0, catalog.Count() + 1} {
		_, err := o.Run(context.Background(), models.RefreshRequest{Batch: n})
		require.ErrorIs(t, err, catalog.ErrOutOfRange)
		require.True(t, orchestrator.IsValidationError(err))
	}
	require.Empty(t, store.upserts, "out-of-range requests must not write the cache")
}

func TestSingleBatchFallbackOnDispatchFailure(t *testing.T) {
	ext := &fakeExtractor{dispatchErr: extract.ErrDispatch}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	res, err := o.Run(context.Background(), models.RefreshRequest{Batch: 1})
	require.NoError(t, err)

	batch, _ := catalog.Get(1)
	require.True(t, res.Success)
	require.Equal(t, len(batch.Fallback), res.TotalProgrammes)
	require.Len(t, store.upserts, 1)
	require.Equal(t, batch.Category, store.upserts[0].Category)
	require.Equal(t, "batch-1", store.upserts[0].SearchQuery)
}

func TestSingleBatchFallbackOnPollFailures(t *testing.T) {
	for _, pollErr := range []error{extract.ErrJobFailed, extract.ErrJobTimedOut} {
		ext := &fakeExtractor{pollErr: pollErr}
		store := newFakeStore()
		o := newOrchestrator(ext, store)

		res, err := o.Run(context.Background(), models.RefreshRequest{Batch: 2})
		require.NoError(t, err)

		batch, _ := catalog.Get(2)
		require.Equal(t, len(batch.Fallback), res.TotalProgrammes)
	}
}

func TestSingleBatchZeroRecordsTreatedAsFailure(t *testing.T) {
	// Dispatch and poll succeed but yield nothing; fallback substitutes.
	ext := &fakeExtractor{records: map[string][]models.RawRecord{}}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	res, err := o.Run(context.Background(), models.RefreshRequest{Batch: 3})
	require.NoError(t, err)

	batch, _ := catalog.Get(3)
	require.Equal(t, len(batch.Fallback), res.TotalProgrammes)
}

func TestSingleBatchUsesExtractedRecords(t *testing.T) {
	batch, _ := catalog.Get(1)
	ext := &fakeExtractor{records: map[string][]models.RawRecord{
		batch.Sources[0]: {
			{"title": "Live Course A", "provider": "Live Provider"},
			{"title": "Live Course B"},
		},
	}}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	res, err := o.Run(context.Background(), models.RefreshRequest{Batch: 1, ForceRefresh: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalProgrammes)
	require.Equal(t, "Live Course A", store.upserts[0].EducationData[0].Title)
}

func TestSingleBatchStoreFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("persistence down")
	o := newOrchestrator(&fakeExtractor{dispatchErr: extract.ErrDispatch}, store)

	_, err := o.Run(context.Background(), models.RefreshRequest{Batch: 1})
	require.Error(t, err)
	require.False(t, orchestrator.IsValidationError(err))
}

func TestSingleBatchServedFromFreshCache(t *testing.T) {
	ext := &fakeExtractor{dispatchErr: extract.ErrDispatch}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	first, err := o.Run(context.Background(), models.RefreshRequest{Batch: 1})
	require.NoError(t, err)
	require.Equal(t, 1, ext.dispatched)

	second, err := o.Run(context.Background(), models.RefreshRequest{Batch: 1})
	require.NoError(t, err)
	require.Equal(t, 1, ext.dispatched, "fresh cache must be served without re-dispatching")
	require.Equal(t, first.TotalProgrammes, second.TotalProgrammes)

	_, err = o.Run(context.Background(), models.RefreshRequest{Batch: 1, ForceRefresh: true})
	require.NoError(t, err)
	require.Equal(t, 2, ext.dispatched)
}

func TestScenarioAProjectManagementFallback(t *testing.T) {
	ext := &fakeExtractor{dispatchErr: extract.ErrDispatch}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	res, err := o.Run(context.Background(), models.RefreshRequest{Batch: 4})
	require.NoError(t, err)
	require.Equal(t, 4, res.TotalProgrammes)

	batch, _ := catalog.Get(4)
	providers := make(map[string]struct{})
	for _, rec := range batch.Fallback {
		if p, ok := rec["provider"].(string); ok {
			providers[p] = struct{}{}
		}
	}
	require.Equal(t, len(providers), res.Analytics.TotalProviders)
}

func TestScenarioCFullModeAllExtractionFailing(t *testing.T) {
	ext := &fakeExtractor{dispatchErr: extract.ErrDispatch}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	res, err := o.Run(context.Background(), models.RefreshRequest{})
	require.NoError(t, err)
	require.True(t, res.Success)

	var union []models.Programme
	n := normalize.NewWithClock(testClock)
	for _, batch := range catalog.All() {
		union = append(union, n.NormalizeAll(batch.Fallback, batch)...)
	}
	expected := len(dedupe.ByTitle(union))

	require.Equal(t, expected, res.TotalProgrammes)
	require.Len(t, res.Data, expected)

	// One entry per batch plus the combined one.
	require.Len(t, store.upserts, catalog.Count()+1)
	last := store.upserts[len(store.upserts)-1]
	require.Equal(t, orchestrator.MergedCategory, last.Category)
	require.Equal(t, orchestrator.FullQuery, last.SearchQuery)
}

func TestFullModeDeduplicatesAcrossBatches(t *testing.T) {
	b1, _ := catalog.Get(1)
	b2, _ := catalog.Get(2)
	ext := &fakeExtractor{records: map[string][]models.RawRecord{
		b1.Sources[0]: {{"title": "PRINCE2 Foundation"}, {"title": "Unique A"}},
		b2.Sources[0]: {{"title": "prince2 foundation"}, {"title": "Unique B"}},
	}}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	res, err := o.Run(context.Background(), models.RefreshRequest{ForceRefresh: true})
	require.NoError(t, err)

	var prince int
	for _, p := range res.Data {
		if dedupe.Key(p.Title) == "prince2 foundation" {
			prince++
		}
	}
	require.Equal(t, 1, prince)
}

func seedEntry(store *fakeStore, category, query string, titles []string, refreshed time.Time, expires time.Time) {
	var programmes []models.Programme
	for _, title := range titles {
		programmes = append(programmes, models.Programme{
			Title:       title,
			Institution: "Seed Provider",
			Category:    category,
		})
	}
	entry := models.CacheEntry{
		Category:      category,
		SearchQuery:   query,
		EducationData: programmes,
		ExpiresAt:     expires,
		LastRefreshed: refreshed,
		CacheVersion:  refreshed.Unix(),
		RefreshStatus: models.RefreshCompleted,
	}
	store.entries[entry.Key()] = entry
}

func TestScenarioBMergeTwoUnexpiredRows(t *testing.T) {
	store := newFakeStore()
	seedEntry(store, "electrical-installation", "batch-1",
		[]string{"A", "B", "C"}, testTime.Add(-time.Minute), testTime.Add(time.Hour))
	seedEntry(store, "inspection-testing", "batch-2",
		[]string{"D", "E", "F", "G"}, testTime.Add(-2*time.Minute), testTime.Add(time.Hour))

	o := newOrchestrator(&fakeExtractor{}, store)
	res, err := o.Run(context.Background(), models.RefreshRequest{MergeAll: true})
	require.NoError(t, err)
	require.Equal(t, 7, res.TotalProgrammes)

	merged, err := store.ReadEntry(context.Background(), orchestrator.MergedCategory, orchestrator.MergedQuery)
	require.NoError(t, err)
	require.NotNil(t, merged)
	require.Len(t, merged.EducationData, 7)
}

func TestMergeExcludesExpiredRows(t *testing.T) {
	store := newFakeStore()
	seedEntry(store, "electrical-installation", "batch-1",
		[]string{"A", "B"}, testTime.Add(-time.Minute), testTime.Add(time.Hour))
	seedEntry(store, "inspection-testing", "batch-2",
		[]string{"C", "D"}, testTime.Add(-2*time.Hour), testTime.Add(-time.Hour))

	o := newOrchestrator(&fakeExtractor{}, store)
	res, err := o.Run(context.Background(), models.RefreshRequest{MergeAll: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalProgrammes)
}

func TestMergeFreshestDuplicateWins(t *testing.T) {
	store := newFakeStore()
	seedEntry(store, "electrical-installation", "batch-1",
		[]string{"PRINCE2 Foundation"}, testTime.Add(-time.Hour), testTime.Add(time.Hour))
	fresh := testTime.Add(-time.Minute)
	seedEntry(store, "project-management", "batch-4",
		[]string{"prince2 foundation"}, fresh, testTime.Add(time.Hour))

	o := newOrchestrator(&fakeExtractor{}, store)
	res, err := o.Run(context.Background(), models.RefreshRequest{MergeAll: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalProgrammes)

	merged, _ := store.ReadEntry(context.Background(), orchestrator.MergedCategory, orchestrator.MergedQuery)
	require.Equal(t, "prince2 foundation", merged.EducationData[0].Title)
	require.Equal(t, "project-management", merged.EducationData[0].Category)
}

func TestMergeIdempotent(t *testing.T) {
	store := newFakeStore()
	seedEntry(store, "electrical-installation", "batch-1",
		[]string{"A", "B", "C"}, testTime.Add(-time.Minute), testTime.Add(time.Hour))

	o := newOrchestrator(&fakeExtractor{}, store)

	_, err := o.Run(context.Background(), models.RefreshRequest{MergeAll: true})
	require.NoError(t, err)
	first, _ := store.ReadEntry(context.Background(), orchestrator.MergedCategory, orchestrator.MergedQuery)

	_, err = o.Run(context.Background(), models.RefreshRequest{MergeAll: true})
	require.NoError(t, err)
	second, _ := store.ReadEntry(context.Background(), orchestrator.MergedCategory, orchestrator.MergedQuery)

	require.Equal(t, first.EducationData, second.EducationData)
	require.Equal(t, first.AnalyticsData, second.AnalyticsData)
}

func TestMergeStoreReadFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.readErr = errors.New("search down")

	o := newOrchestrator(&fakeExtractor{}, store)
	_, err := o.Run(context.Background(), models.RefreshRequest{MergeAll: true})
	require.Error(t, err)
}

func TestCacheEntryShape(t *testing.T) {
	ext := &fakeExtractor{dispatchErr: extract.ErrDispatch}
	store := newFakeStore()
	o := newOrchestrator(ext, store)

	_, err := o.Run(context.Background(), models.RefreshRequest{Batch: 1})
	require.NoError(t, err)

	entry := store.upserts[0]
	require.Equal(t, entry.LastRefreshed.Add(time.Hour), entry.ExpiresAt)
	require.Equal(t, entry.LastRefreshed.Unix(), entry.CacheVersion)
	require.Equal(t, models.RefreshCompleted, entry.RefreshStatus)
	for i, p := range entry.EducationData {
		require.NotEmpty(t, p.Title, "programme %d title", i)
		require.NotEmpty(t, p.CourseURL, "programme %d url", i)
	}
	require.Equal(t, fmt.Sprintf("%s::%s", entry.Category, entry.SearchQuery), entry.Key())
}
