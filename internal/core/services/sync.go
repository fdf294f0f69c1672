package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
	"github.com/slub/lisztbib/internal/core/ports/driving"
	"github.com/slub/lisztbib/internal/logger"
)

// Ensure SyncPipeline implements the interface.
var _ driving.SyncService = (*SyncPipeline)(nil)

// Section titles reported while a run progresses.
const (
	SectionFetch         = "Fetching Bibliography Data"
	SectionCommitItems   = "Committing Bibliography Data"
	SectionCommitLocales = "Committing Locale Data"
)

// SyncPipeline fetches the bibliography and its locales from the source and
// republishes them as two fully rebuilt indices. A run is strictly sequential:
// one outstanding request at a time, no retries, and the first failure aborts.
type SyncPipeline struct {
	cfg      domain.SyncConfig
	source   driven.BibliographySource
	index    driven.SearchIndex
	progress driven.ProgressReporter
	runs     driven.RunStore

	newRunID func() string
	now      func() time.Time
}

// NewSyncPipeline creates a pipeline for the given configuration.
// The progress reporter and run store are optional and may be nil.
func NewSyncPipeline(
	cfg domain.SyncConfig,
	source driven.BibliographySource,
	index driven.SearchIndex,
	progress driven.ProgressReporter,
	runs driven.RunStore,
) (*SyncPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || index == nil {
		return nil, fmt.Errorf("%w: source and search index are required", domain.ErrInvalidInput)
	}
	if progress == nil {
		progress = NopProgress{}
	}
	return &SyncPipeline{
		cfg:      cfg,
		source:   source,
		index:    index,
		progress: progress,
		runs:     runs,
		newRunID: uuid.NewString,
		now:      time.Now,
	}, nil
}

// Sync runs the fetch phase, then rebuilds the bibliography index, then the
// locale index. Documents flushed before a failure stay committed.
func (p *SyncPipeline) Sync(ctx context.Context) (*domain.SyncReport, error) {
	report := &domain.SyncReport{
		RunID:     p.newRunID(),
		StartedAt: p.now(),
	}

	err := p.run(ctx, report)
	report.FinishedAt = p.now()
	p.record(ctx, report, err)
	if err != nil {
		return nil, err
	}

	logger.Info("run %s: committed %d items in %d batches and %d locales in %s",
		report.RunID, report.Items, report.BibliographyBatches, report.Locales, report.Duration())
	return report, nil
}

func (p *SyncPipeline) run(ctx context.Context, report *domain.SyncReport) error {
	logger.Info("run %s: syncing group %s into %s and %s", report.RunID,
		p.cfg.Zotero.GroupID, p.cfg.Elastic.IndexName, p.cfg.Elastic.LocaleIndexName)

	p.progress.Section(SectionFetch)
	locales, items, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	report.Items = items.Len()
	report.Locales = len(locales)

	p.progress.Section(SectionCommitItems)
	report.BibliographyBatches, err = p.commit(ctx, domain.IndexDescriptor{
		Name:      p.cfg.Elastic.IndexName,
		BatchSize: p.cfg.Elastic.BulkSize,
		Total:     items.Len(),
		Documents: items.Documents(),
	})
	if err != nil {
		return err
	}

	// The locale set is small and always goes out in a single bulk call.
	p.progress.Section(SectionCommitLocales)
	report.LocaleBatches, err = p.commit(ctx, domain.IndexDescriptor{
		Name:      p.cfg.Elastic.LocaleIndexName,
		Total:     len(locales),
		Documents: locales.Documents(),
	})
	return err
}

// fetch reads the locales, then pages through the bibliography.
//
// The total comes from a separate one-item probe whose item is discarded;
// paging then starts over at offset zero, so a well-behaved source yields
// exactly total items.
func (p *SyncPipeline) fetch(ctx context.Context) (domain.Locales, *domain.WorkingSet, error) {
	group := p.cfg.Zotero.GroupID
	bulkSize := p.cfg.Zotero.BulkSize

	locales, err := p.source.FetchLocales(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch locales: %w", err)
	}
	logger.Debug("Fetched %d locales", len(locales))

	total, err := p.source.FetchTotalCount(ctx, group)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch total count: %w", err)
	}
	logger.Debug("Group %s holds %d items, fetching %d per page", group, total, bulkSize)

	items := domain.NewWorkingSet(total)
	p.progress.Start(total)

	page, err := p.source.FetchPage(ctx, group, 0, bulkSize)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch page at offset 0: %w", err)
	}
	items.Append(page...)
	p.progress.Advance(bulkSize)

	for cursor := bulkSize; cursor < total; cursor += bulkSize {
		page, err := p.source.FetchPage(ctx, group, cursor, bulkSize)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch page at offset %d: %w", cursor, err)
		}
		items.Append(page...)
		p.progress.Advance(bulkSize)
		logger.Debug("Fetched %d/%d items", items.Len(), total)
	}
	p.progress.Finish()

	if items.Len() != total {
		logger.Warn("Source declared %d items but returned %d", total, items.Len())
	}
	return locales, items, nil
}

// commit replaces the index described by d and loads its documents.
// It returns the number of bulk writes issued.
//
// Batched descriptors flush every BatchSize documents; whatever remains is
// flushed at the end. A bulk write is issued for an empty remainder only when
// nothing was written before, so an empty supplier still produces one call.
func (p *SyncPipeline) commit(ctx context.Context, d domain.IndexDescriptor) (int, error) {
	logger.Info("Committing the %s index", d.Name)

	if err := p.resetIndex(ctx, d.Name); err != nil {
		return 0, err
	}

	var (
		pending  []driven.BulkAction
		batches  int
		streamed int
	)
	flush := func() error {
		if len(pending) == 0 && batches > 0 {
			return nil
		}
		if err := p.index.BulkWrite(ctx, pending); err != nil {
			return fmt.Errorf("bulk write to %s after %d documents: %w", d.Name, streamed-len(pending), err)
		}
		batches++
		logger.Debug("Flushed %d documents to %s (batch %d)", len(pending), d.Name, batches)
		pending = nil
		return nil
	}

	p.progress.Start(d.Total)
	for doc := range d.Documents {
		pending = append(pending, driven.BulkAction{
			Index: d.Name,
			ID:    doc.ID,
			Body:  doc.Body,
		})
		streamed++
		p.progress.Advance(1)

		if d.Batched() && len(pending) >= d.BatchSize {
			if err := flush(); err != nil {
				return batches, err
			}
		}
	}
	p.progress.Finish()

	if err := flush(); err != nil {
		return batches, err
	}
	logger.Info("Committed %d documents to %s", streamed, d.Name)
	return batches, nil
}

// resetIndex leaves an empty index under name. Between the delete and the
// create the index does not exist; readers see "index not found" rather than
// stale or partial data.
func (p *SyncPipeline) resetIndex(ctx context.Context, name string) error {
	exists, err := p.index.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		if err := p.index.DeleteIndex(ctx, name); err != nil {
			return fmt.Errorf("delete index %s: %w", name, err)
		}
	}
	if err := p.index.CreateIndex(ctx, name); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// record stores the outcome of a run. History is best effort and never
// changes the result of the run.
func (p *SyncPipeline) record(ctx context.Context, report *domain.SyncReport, runErr error) {
	if p.runs == nil {
		return
	}
	run := domain.SyncRun{
		ID:              report.RunID,
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		GroupID:         p.cfg.Zotero.GroupID,
		IndexName:       p.cfg.Elastic.IndexName,
		LocaleIndexName: p.cfg.Elastic.LocaleIndexName,
		Items:           report.Items,
		Locales:         report.Locales,
		Success:         runErr == nil,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// An interrupted run is still recorded.
	if err := p.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record run %s: %v", report.RunID, err)
	}
}
