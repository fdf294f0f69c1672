// Package elastic implements driven.SearchIndex on Elasticsearch 8.
//
// Index lifecycle calls map onto the indices API. Bulk writes are sent as
// a single NDJSON request of index actions; a response whose errors flag
// is set fails the whole batch.
package elastic
