// Package domain defines the core entities of the bibliography sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - BibliographyItem: An opaque item fetched from the remote source
//   - LocaleEntry: Field-label translations for one locale
//   - WorkingSet: The ordered, in-memory set of fetched items
//   - IndexDescriptor: A target index and the documents that fill it
//   - SyncConfig: The explicit configuration of one run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
