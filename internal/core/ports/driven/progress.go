package driven

// ProgressReporter receives progress notifications from a sync run.
// It is informational only; implementations must not fail the run.
type ProgressReporter interface {
	// Section announces a new phase of the run.
	Section(title string)

	// Start begins a progress span of total units.
	Start(total int)

	// Advance moves the current span forward by n units.
	Advance(n int)

	// Finish completes the current span.
	Finish()
}
