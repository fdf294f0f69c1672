package driving

import (
	"context"

	"github.com/slub/lisztbib/internal/core/domain"
)

// SyncService rebuilds the bibliography and locale indices from the source.
type SyncService interface {
	// Sync runs the fetch phase followed by the commit of both indices.
	// Any failure aborts the run and is returned.
	Sync(ctx context.Context) (*domain.SyncReport, error)
}

// HistoryService exposes the record of past runs.
type HistoryService interface {
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
