// Package driving defines what the CLI drives: a sync run, the run
// history and the settings. Services in internal/core/services implement
// these ports.
package driving
