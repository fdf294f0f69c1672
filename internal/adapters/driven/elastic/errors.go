package elastic

import (
	"fmt"

	"github.com/slub/lisztbib/internal/core/domain"
)

// ResponseError represents a failed Elasticsearch API call.
type ResponseError struct {
	Op         string
	Index      string
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("elastic: %s %s: status %d: %s", e.Op, e.Index, e.StatusCode, e.Message)
}

// Unwrap classifies the error as a failed index operation.
func (e *ResponseError) Unwrap() error {
	return domain.ErrIndexOperationFailed
}

// BulkError reports a bulk response with item-level failures.
type BulkError struct {
	Index  string
	Total  int
	Failed int
	// First describes the first failed item.
	First string
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("elastic: bulk write to %s: %d of %d items failed, first: %s",
		e.Index, e.Failed, e.Total, e.First)
}

// Unwrap classifies the error as a failed index operation.
func (e *BulkError) Unwrap() error {
	return domain.ErrIndexOperationFailed
}
