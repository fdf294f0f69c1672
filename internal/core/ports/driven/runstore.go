package driven

import (
	"context"

	"github.com/slub/lisztbib/internal/core/domain"
)

// RunStore persists the history of sync runs.
// The history is audit-only: the sync pipeline never reads it.
type RunStore interface {
	// Record stores a finished run.
	Record(ctx context.Context, run domain.SyncRun) error

	// List returns the most recent runs, newest first.
	// A limit of zero or less returns all runs.
	List(ctx context.Context, limit int) ([]domain.SyncRun, error)

	// Close releases resources.
	Close() error
}
