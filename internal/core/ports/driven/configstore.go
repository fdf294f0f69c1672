package driven

// ConfigStore holds the persisted settings as dot-separated keys
// (e.g. "zotero.group_id"). Typed getters return the zero value when a key
// is missing or has another type; use Get to tell the two apart.
type ConfigStore interface {
	// Get returns the raw stored value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64

	// GetStringSlice drops non-string elements.
	GetStringSlice(key string) []string

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Path returns where the settings are persisted.
	Path() string
}
