package driven

import (
	"context"

	"github.com/slub/lisztbib/internal/core/domain"
)

// BibliographySource reads the bibliography and its locale data from the
// remote API. Implementations perform no retries; every failure is returned
// to the caller immediately.
type BibliographySource interface {
	// FetchLocales returns the full locale set in one call, ordered by code.
	// Fails with domain.ErrSourceUnavailable if the endpoint is unreachable
	// or answers with a non-success status, and with domain.ErrMalformedResponse
	// if the locales field is absent.
	FetchLocales(ctx context.Context) (domain.Locales, error)

	// FetchTotalCount issues a one-item probe and returns the total item count
	// declared by the response header. The probed item is discarded.
	// Fails with domain.ErrMalformedResponse if the header is missing.
	FetchTotalCount(ctx context.Context, collectionID string) (int, error)

	// FetchPage returns up to limit items starting at offset, in source order.
	// Fails with domain.ErrSourceUnavailable on transport or HTTP failure.
	FetchPage(ctx context.Context, collectionID string, offset, limit int) ([]domain.BibliographyItem, error)
}
