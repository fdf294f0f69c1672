package driving

import "github.com/slub/lisztbib/internal/core/domain"

// SettingsService resolves and persists the sync configuration.
type SettingsService interface {
	// Get returns the effective configuration: defaults, then the config
	// file, then environment overrides.
	Get() (*domain.SyncConfig, error)

	// Settings lists every recognised key with its effective value and
	// where that value came from, sorted by key.
	Settings() ([]domain.Setting, error)

	// Set persists a single configuration key.
	Set(key, value string) error

	// Keys lists the recognised configuration keys.
	Keys() []string

	// Path returns the configuration file path.
	Path() string
}
