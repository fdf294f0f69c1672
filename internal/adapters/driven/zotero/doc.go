// Package zotero implements driven.BibliographySource against the
// Zotero Web API v3.
//
// The client reads the top-level items of a group library page by page,
// plus the locale table of the global item schema. Requests are made one
// at a time. A token bucket throttles them, and a Backoff header sent by
// the server delays the next request. Failures are never retried: a 429
// or any other non-2xx status fails the call.
package zotero
