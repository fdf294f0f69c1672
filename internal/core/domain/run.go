package domain

import "time"

// SyncReport summarises a completed run.
type SyncReport struct {
	// RunID identifies the run in logs and history.
	RunID string

	// Items is the number of bibliography items fetched and committed.
	Items int

	// Locales is the number of locale documents committed.
	Locales int

	// BibliographyBatches is the number of bulk writes to the bibliography index.
	BibliographyBatches int

	// LocaleBatches is the number of bulk writes to the locale index.
	LocaleBatches int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (r SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncRun is the history record of one run, successful or not.
type SyncRun struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	GroupID         string
	IndexName       string
	LocaleIndexName string
	Items           int
	Locales         int
	Success         bool

	// Error is the failure message; empty on success.
	Error string
}

// Duration returns how long the run took.
func (r SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
