package driven

import (
	"context"
)

// SearchIndex manages index lifecycle and bulk ingestion on the search engine.
// All failures wrap domain.ErrIndexOperationFailed.
type SearchIndex interface {
	// IndexExists reports whether the named index exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// DeleteIndex removes the named index.
	DeleteIndex(ctx context.Context, name string) error

	// CreateIndex creates the named index, empty.
	CreateIndex(ctx context.Context, name string) error

	// BulkWrite applies the actions in order within one request.
	// A failure of any action fails the whole batch.
	// An empty action list is a no-op.
	BulkWrite(ctx context.Context, actions []BulkAction) error
}

// BulkAction is one "index" action of a bulk write.
type BulkAction struct {
	// Index is the target index name.
	Index string

	// ID is the document ID.
	ID string

	// Body is the serialised document.
	Body []byte
}
