package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slub/lisztbib/internal/adapters/driven/storage/memory"
	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
)

// --- Test doubles for sync testing ---

// syncMockSource implements driven.BibliographySource over a fixed item list.
type syncMockSource struct {
	locales  domain.Locales
	items    []domain.BibliographyItem
	declared int // total reported by the probe; -1 means len(items)

	localesErr error
	countErr   error
	pageErr    error
	pageErrAt  int // offset at which pageErr is returned

	calls []string
}

func newSyncMockSource(n int) *syncMockSource {
	items := make([]domain.BibliographyItem, n)
	for i := range items {
		key := fmt.Sprintf("ITEM%04d", i)
		items[i] = domain.BibliographyItem{
			Key: key,
			Raw: json.RawMessage(fmt.Sprintf(`{"key":%q,"title":"Work %d"}`, key, i)),
		}
	}
	return &syncMockSource{
		locales: domain.Locales{
			{Code: "de-DE", Raw: json.RawMessage(`{"fields":{"title":"Titel"}}`)},
			{Code: "en-US", Raw: json.RawMessage(`{"fields":{"title":"Title"}}`)},
		},
		items:     items,
		declared:  -1,
		pageErrAt: -1,
	}
}

func (s *syncMockSource) FetchLocales(_ context.Context) (domain.Locales, error) {
	s.calls = append(s.calls, "locales")
	if s.localesErr != nil {
		return nil, s.localesErr
	}
	return s.locales, nil
}

func (s *syncMockSource) FetchTotalCount(_ context.Context, _ string) (int, error) {
	s.calls = append(s.calls, "probe")
	if s.countErr != nil {
		return 0, s.countErr
	}
	if s.declared >= 0 {
		return s.declared, nil
	}
	return len(s.items), nil
}

func (s *syncMockSource) FetchPage(_ context.Context, _ string, offset, limit int) ([]domain.BibliographyItem, error) {
	s.calls = append(s.calls, fmt.Sprintf("page %d+%d", offset, limit))
	if s.pageErr != nil && offset == s.pageErrAt {
		return nil, s.pageErr
	}
	if offset >= len(s.items) {
		return nil, nil
	}
	end := min(offset+limit, len(s.items))
	return s.items[offset:end], nil
}

// syncRecordingIndex wraps the memory index and records every call.
type syncRecordingIndex struct {
	*memory.SearchIndex

	calls      []string
	batches    map[string][]int
	failBulkAt int // 1-based bulk call number that fails; 0 never fails
	bulkCalls  int
}

func newSyncRecordingIndex() *syncRecordingIndex {
	return &syncRecordingIndex{
		SearchIndex: memory.NewSearchIndex(),
		batches:     make(map[string][]int),
	}
}

func (r *syncRecordingIndex) IndexExists(ctx context.Context, name string) (bool, error) {
	r.calls = append(r.calls, "exists "+name)
	return r.SearchIndex.IndexExists(ctx, name)
}

func (r *syncRecordingIndex) DeleteIndex(ctx context.Context, name string) error {
	r.calls = append(r.calls, "delete "+name)
	return r.SearchIndex.DeleteIndex(ctx, name)
}

func (r *syncRecordingIndex) CreateIndex(ctx context.Context, name string) error {
	r.calls = append(r.calls, "create "+name)
	return r.SearchIndex.CreateIndex(ctx, name)
}

func (r *syncRecordingIndex) BulkWrite(ctx context.Context, actions []driven.BulkAction) error {
	r.bulkCalls++
	name := "?"
	if len(actions) > 0 {
		name = actions[0].Index
	}
	r.calls = append(r.calls, "bulk "+name)
	if r.failBulkAt > 0 && r.bulkCalls == r.failBulkAt {
		return fmt.Errorf("%w: es_rejected_execution_exception", domain.ErrIndexOperationFailed)
	}
	r.batches[name] = append(r.batches[name], len(actions))
	return r.SearchIndex.BulkWrite(ctx, actions)
}

// syncRecordingProgress records progress notifications.
type syncRecordingProgress struct {
	events []string
}

func (p *syncRecordingProgress) Section(title string) { p.events = append(p.events, "section "+title) }
func (p *syncRecordingProgress) Start(total int)      { p.events = append(p.events, fmt.Sprintf("start %d", total)) }
func (p *syncRecordingProgress) Advance(n int)        { p.events = append(p.events, fmt.Sprintf("advance %d", n)) }
func (p *syncRecordingProgress) Finish()              { p.events = append(p.events, "finish") }

func syncTestConfig(fetchBulk, indexBulk int) domain.SyncConfig {
	cfg := domain.DefaultSyncConfig()
	cfg.Zotero.GroupID = "4835217"
	cfg.Zotero.BulkSize = fetchBulk
	cfg.Elastic.BulkSize = indexBulk
	return cfg
}

func newTestPipeline(
	t *testing.T,
	cfg domain.SyncConfig,
	source driven.BibliographySource,
	index driven.SearchIndex,
	progress driven.ProgressReporter,
	runs driven.RunStore,
) *SyncPipeline {
	t.Helper()
	p, err := NewSyncPipeline(cfg, source, index, progress, runs)
	require.NoError(t, err)
	p.newRunID = func() string { return "run-1" }
	clock := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return p
}

// --- Constructor ---

func TestNewSyncPipeline_InvalidConfig(t *testing.T) {
	cfg := syncTestConfig(2, 2)
	cfg.Zotero.GroupID = ""

	_, err := NewSyncPipeline(cfg, newSyncMockSource(0), memory.NewSearchIndex(), nil, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNewSyncPipeline_MissingCollaborators(t *testing.T) {
	_, err := NewSyncPipeline(syncTestConfig(2, 2), nil, memory.NewSearchIndex(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewSyncPipeline(syncTestConfig(2, 2), newSyncMockSource(0), nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewSyncPipeline_DefaultsProgress(t *testing.T) {
	p, err := NewSyncPipeline(syncTestConfig(2, 2), newSyncMockSource(0), memory.NewSearchIndex(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, NopProgress{}, p.progress)
}

// --- Fetch phase ---

func TestSync_FetchScenario_FiveItemsPagesOfTwo(t *testing.T) {
	source := newSyncMockSource(5)
	index := newSyncRecordingIndex()
	p := newTestPipeline(t, syncTestConfig(2, 100), source, index, nil, nil)

	report, err := p.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"locales", "probe", "page 0+2", "page 2+2", "page 4+2"}, source.calls)
	assert.Equal(t, 5, report.Items)
	assert.Equal(t, 5, index.Count("zotero"))
}

func TestSync_FetchRetrievesExactlyTotal(t *testing.T) {
	for total := 0; total <= 12; total++ {
		for bulk := 1; bulk <= 5; bulk++ {
			t.Run(fmt.Sprintf("T=%d/bulk=%d", total, bulk), func(t *testing.T) {
				source := newSyncMockSource(total)
				p := newTestPipeline(t, syncTestConfig(bulk, 3), source, newSyncRecordingIndex(), nil, nil)

				_, items, err := p.fetch(context.Background())

				require.NoError(t, err)
				assert.Equal(t, total, items.Len())

				// one locale call, one probe, then ceil(T/bulk) pages (at least one)
				pages := max(1, (total+bulk-1)/bulk)
				assert.Len(t, source.calls, 2+pages)
			})
		}
	}
}

func TestSync_FetchKeepsArrivalOrder(t *testing.T) {
	source := newSyncMockSource(7)
	p := newTestPipeline(t, syncTestConfig(3, 3), source, newSyncRecordingIndex(), nil, nil)

	_, items, err := p.fetch(context.Background())

	require.NoError(t, err)
	for i, it := range items.Items() {
		assert.Equal(t, source.items[i].Key, it.Key)
	}
}

func TestSync_FetchShortSourceIsNotAnError(t *testing.T) {
	source := newSyncMockSource(3)
	source.declared = 6
	p := newTestPipeline(t, syncTestConfig(2, 3), source, newSyncRecordingIndex(), nil, nil)

	_, items, err := p.fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, items.Len())
	assert.Equal(t, []string{"locales", "probe", "page 0+2", "page 2+2", "page 4+2"}, source.calls)
}

func TestSync_FetchErrorsAbortBeforeCommit(t *testing.T) {
	sourceDown := fmt.Errorf("%w: HTTP 503", domain.ErrSourceUnavailable)
	noHeader := fmt.Errorf("%w: Total-Results header missing", domain.ErrMalformedResponse)

	tests := []struct {
		name   string
		mutate func(*syncMockSource)
		want   error
	}{
		{"locales", func(s *syncMockSource) { s.localesErr = sourceDown }, domain.ErrSourceUnavailable},
		{"count", func(s *syncMockSource) { s.countErr = noHeader }, domain.ErrMalformedResponse},
		{"first page", func(s *syncMockSource) { s.pageErr, s.pageErrAt = sourceDown, 0 }, domain.ErrSourceUnavailable},
		{"later page", func(s *syncMockSource) { s.pageErr, s.pageErrAt = sourceDown, 4 }, domain.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newSyncMockSource(9)
			tt.mutate(source)
			index := newSyncRecordingIndex()
			p := newTestPipeline(t, syncTestConfig(2, 3), source, index, nil, nil)

			report, err := p.Sync(context.Background())

			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, index.calls, "no index call may happen after a failed fetch")
		})
	}
}

// --- Commit phase ---

func TestSync_BulkCallCount(t *testing.T) {
	for n := 0; n <= 10; n++ {
		for b := 1; b <= 4; b++ {
			t.Run(fmt.Sprintf("N=%d/B=%d", n, b), func(t *testing.T) {
				index := newSyncRecordingIndex()
				p := newTestPipeline(t, syncTestConfig(5, b), newSyncMockSource(n), index, nil, nil)

				report, err := p.Sync(context.Background())
				require.NoError(t, err)

				want := 1
				if n > 0 {
					want = (n + b - 1) / b
				}
				assert.Equal(t, want, report.BibliographyBatches)
				assert.Equal(t, n, index.Count("zotero"))

				// every full batch has exactly b documents, the last one the rest
				var sum int
				for i, size := range index.batches["zotero"] {
					if i < len(index.batches["zotero"])-1 {
						assert.Equal(t, b, size)
					}
					sum += size
				}
				assert.Equal(t, n, sum)
			})
		}
	}
}

func TestSync_EmptyBibliography(t *testing.T) {
	source := newSyncMockSource(0)
	index := newSyncRecordingIndex()
	require.NoError(t, index.SearchIndex.CreateIndex(context.Background(), "zotero"))
	p := newTestPipeline(t, syncTestConfig(2, 2), source, index, nil, nil)

	report, err := p.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Items)
	assert.Equal(t, 1, report.BibliographyBatches)
	assert.Equal(t, []string{
		"exists zotero", "delete zotero", "create zotero", "bulk ?",
		"exists zotero_locales", "create zotero_locales", "bulk zotero_locales",
	}, index.calls)
	exists, _ := index.IndexExists(context.Background(), "zotero")
	assert.True(t, exists)
}

func TestSync_ResetBeforeAnyBulkWrite(t *testing.T) {
	ctx := context.Background()
	index := newSyncRecordingIndex()
	require.NoError(t, index.SearchIndex.BulkWrite(ctx, []driven.BulkAction{
		{Index: "zotero", ID: "STALE", Body: []byte(`{}`)},
		{Index: "zotero_locales", ID: "xx-XX", Body: []byte(`{}`)},
	}))
	p := newTestPipeline(t, syncTestConfig(2, 2), newSyncMockSource(3), index, nil, nil)

	_, err := p.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"exists zotero", "delete zotero", "create zotero", "bulk zotero", "bulk zotero",
		"exists zotero_locales", "delete zotero_locales", "create zotero_locales", "bulk zotero_locales",
	}, index.calls)
	assert.NotContains(t, index.IDs("zotero"), "STALE")
	assert.NotContains(t, index.IDs("zotero_locales"), "xx-XX")
}

func TestSync_DocumentIDs(t *testing.T) {
	source := newSyncMockSource(4)
	index := newSyncRecordingIndex()
	p := newTestPipeline(t, syncTestConfig(3, 3), source, index, nil, nil)

	_, err := p.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"ITEM0000", "ITEM0001", "ITEM0002", "ITEM0003"}, index.IDs("zotero"))
	assert.Equal(t, []string{"de-DE", "en-US"}, index.IDs("zotero_locales"))

	body, err := index.Get("zotero", "ITEM0002")
	require.NoError(t, err)
	assert.Equal(t, string(source.items[2].Raw), string(body))
	body, err = index.Get("zotero_locales", "de-DE")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"title":"Titel"}}`, string(body))
}

func TestSync_LocalesGoOutInOneBulkCall(t *testing.T) {
	source := newSyncMockSource(1)
	source.locales = nil
	for i := 0; i < 7; i++ {
		source.locales = append(source.locales, domain.LocaleEntry{
			Code: fmt.Sprintf("l%d", i),
			Raw:  json.RawMessage(`{}`),
		})
	}
	index := newSyncRecordingIndex()
	p := newTestPipeline(t, syncTestConfig(2, 2), source, index, nil, nil)

	report, err := p.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.LocaleBatches)
	assert.Equal(t, []int{7}, index.batches["zotero_locales"])
	assert.Equal(t, 7, report.Locales)
}

func TestSync_Idempotent(t *testing.T) {
	ctx := context.Background()
	index := newSyncRecordingIndex()

	for run := 0; run < 2; run++ {
		p := newTestPipeline(t, syncTestConfig(4, 3), newSyncMockSource(10), index, nil, nil)
		_, err := p.Sync(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 10, index.Count("zotero"))
	assert.Equal(t, newSyncMockSource(10).keys(), index.IDs("zotero"))
	assert.Equal(t, 2, index.Count("zotero_locales"))
}

func (s *syncMockSource) keys() []string {
	keys := make([]string, len(s.items))
	for i, it := range s.items {
		keys[i] = it.Key
	}
	return keys
}

func TestSync_BulkFailureKeepsEarlierBatches(t *testing.T) {
	index := newSyncRecordingIndex()
	index.failBulkAt = 2
	p := newTestPipeline(t, syncTestConfig(5, 2), newSyncMockSource(5), index, nil, nil)

	report, err := p.Sync(context.Background())

	assert.Nil(t, report)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexOperationFailed)
	assert.Contains(t, err.Error(), "bulk write to zotero after 2 documents")
	assert.Equal(t, 2, index.Count("zotero"))

	exists, _ := index.IndexExists(context.Background(), "zotero_locales")
	assert.False(t, exists, "locale index must stay untouched")
}

func TestSync_LifecycleFailure(t *testing.T) {
	ctx := context.Background()
	index := &failingLifecycleIndex{SearchIndex: memory.NewSearchIndex()}
	require.NoError(t, index.SearchIndex.CreateIndex(ctx, "zotero"))
	p := newTestPipeline(t, syncTestConfig(2, 2), newSyncMockSource(2), index, nil, nil)

	_, err := p.Sync(ctx)

	assert.ErrorIs(t, err, domain.ErrIndexOperationFailed)
	assert.Contains(t, err.Error(), "delete index zotero")
}

// failingLifecycleIndex rejects deletes.
type failingLifecycleIndex struct {
	*memory.SearchIndex
}

func (f *failingLifecycleIndex) DeleteIndex(_ context.Context, name string) error {
	return fmt.Errorf("%w: cannot delete %s", domain.ErrIndexOperationFailed, name)
}

// --- Reporting and history ---

func TestSync_ProgressEvents(t *testing.T) {
	progress := &syncRecordingProgress{}
	p := newTestPipeline(t, syncTestConfig(2, 10), newSyncMockSource(3), newSyncRecordingIndex(), progress, nil)

	_, err := p.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"section " + SectionFetch,
		"start 3", "advance 2", "advance 2", "finish",
		"section " + SectionCommitItems,
		"start 3", "advance 1", "advance 1", "advance 1", "finish",
		"section " + SectionCommitLocales,
		"start 2", "advance 1", "advance 1", "finish",
	}, progress.events)
}

func TestSync_Report(t *testing.T) {
	p := newTestPipeline(t, syncTestConfig(2, 2), newSyncMockSource(5), newSyncRecordingIndex(), nil, nil)

	report, err := p.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 5, report.Items)
	assert.Equal(t, 2, report.Locales)
	assert.Equal(t, 3, report.BibliographyBatches)
	assert.Equal(t, 1, report.LocaleBatches)
	assert.Equal(t, time.Second, report.Duration())
}

func TestSync_RecordsHistory(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()

	ok := newTestPipeline(t, syncTestConfig(2, 2), newSyncMockSource(3), newSyncRecordingIndex(), nil, runs)
	_, err := ok.Sync(ctx)
	require.NoError(t, err)

	source := newSyncMockSource(3)
	source.localesErr = errors.New("dial tcp: connection refused")
	failing := newTestPipeline(t, syncTestConfig(2, 2), source, newSyncRecordingIndex(), nil, runs)
	failing.newRunID = func() string { return "run-2" }
	_, err = failing.Sync(ctx)
	require.Error(t, err)

	recorded, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recorded, 2)

	byID := map[string]domain.SyncRun{}
	for _, r := range recorded {
		byID[r.ID] = r
	}
	assert.True(t, byID["run-1"].Success)
	assert.Equal(t, 3, byID["run-1"].Items)
	assert.Equal(t, "4835217", byID["run-1"].GroupID)
	assert.Equal(t, "zotero", byID["run-1"].IndexName)
	assert.False(t, byID["run-2"].Success)
	assert.Contains(t, byID["run-2"].Error, "connection refused")
}

func TestSync_HistoryFailureDoesNotFailRun(t *testing.T) {
	p := newTestPipeline(t, syncTestConfig(2, 2), newSyncMockSource(1), newSyncRecordingIndex(), nil, brokenRunStore{})

	_, err := p.Sync(context.Background())

	assert.NoError(t, err)
}

type brokenRunStore struct{}

func (brokenRunStore) Record(context.Context, domain.SyncRun) error { return errors.New("disk full") }
func (brokenRunStore) List(context.Context, int) ([]domain.SyncRun, error) {
	return nil, errors.New("disk full")
}
func (brokenRunStore) Close() error { return nil }
