package domain

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultZoteroAPIURL      = "https://api.zotero.org"
	DefaultZoteroSchemaURL   = "https://api.zotero.org/schema?format=json"
	DefaultFetchBulkSize     = 50
	DefaultRequestsPerSecond = 1.0
	DefaultIndexName         = "zotero"
	DefaultLocaleIndexName   = "zotero_locales"
	DefaultIndexBulkSize     = 500
	DefaultElasticAddress    = "http://localhost:9200"
	DefaultHTTPTimeout       = 30 * time.Second
)

// maxZoteroPageLimit is the largest page the Zotero API serves.
const maxZoteroPageLimit = 100

const (
	maskedSecret     = "********"
	maskVisibleChars = 4
)

// SyncConfig is the explicit configuration of one sync run.
// It is passed to the pipeline on construction; nothing is looked up globally.
type SyncConfig struct {
	Zotero  ZoteroConfig
	Elastic ElasticConfig

	// Timeout bounds each HTTP request. Zero leaves the transport default.
	Timeout time.Duration
}

// ZoteroConfig configures the remote bibliography source.
type ZoteroConfig struct {
	// APIKey is the Zotero API credential.
	APIKey string

	// GroupID identifies the group library to sync.
	GroupID string

	// BulkSize is the number of items requested per page.
	BulkSize int

	// APIURL is the base URL of the Zotero Web API.
	APIURL string

	// SchemaURL returns the schema document containing the locales.
	SchemaURL string

	// RequestsPerSecond throttles requests to the API.
	RequestsPerSecond float64
}

// ElasticConfig configures the target search engine.
type ElasticConfig struct {
	// Addresses lists the cluster node URLs.
	Addresses []string

	Username string
	Password string
	APIKey   string

	// IndexName is the bibliography index.
	IndexName string

	// LocaleIndexName is the locale index.
	LocaleIndexName string

	// BulkSize is the number of bibliography documents per bulk write.
	BulkSize int
}

// DefaultSyncConfig returns a configuration with defaults filled in.
// Credentials and the group ID have no default.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Zotero: ZoteroConfig{
			BulkSize:          DefaultFetchBulkSize,
			APIURL:            DefaultZoteroAPIURL,
			SchemaURL:         DefaultZoteroSchemaURL,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Elastic: ElasticConfig{
			Addresses:       []string{DefaultElasticAddress},
			IndexName:       DefaultIndexName,
			LocaleIndexName: DefaultLocaleIndexName,
			BulkSize:        DefaultIndexBulkSize,
		},
		Timeout: DefaultHTTPTimeout,
	}
}

// Validate checks the configuration is complete and consistent.
func (c SyncConfig) Validate() error {
	switch {
	case c.Zotero.GroupID == "":
		return fmt.Errorf("%w: zotero group id is required", ErrInvalidConfig)
	case c.Zotero.BulkSize < 1:
		return fmt.Errorf("%w: zotero bulk size must be at least 1, got %d", ErrInvalidConfig, c.Zotero.BulkSize)
	case c.Zotero.BulkSize > maxZoteroPageLimit:
		return fmt.Errorf("%w: zotero bulk size must be at most %d, got %d",
			ErrInvalidConfig, maxZoteroPageLimit, c.Zotero.BulkSize)
	case c.Zotero.APIURL == "" || c.Zotero.SchemaURL == "":
		return fmt.Errorf("%w: zotero api and schema urls are required", ErrInvalidConfig)
	case c.Elastic.BulkSize < 1:
		return fmt.Errorf("%w: elastic bulk size must be at least 1, got %d", ErrInvalidConfig, c.Elastic.BulkSize)
	case c.Elastic.IndexName == "" || c.Elastic.LocaleIndexName == "":
		return fmt.Errorf("%w: index names are required", ErrInvalidConfig)
	case c.Elastic.IndexName == c.Elastic.LocaleIndexName:
		return fmt.Errorf("%w: bibliography and locale index must differ (%q)", ErrInvalidConfig, c.Elastic.IndexName)
	case len(c.Elastic.Addresses) == 0:
		return fmt.Errorf("%w: at least one elastic address is required", ErrInvalidConfig)
	}
	return nil
}

// MaskSecret hides all but the last few characters of a credential.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= maskVisibleChars {
		return maskedSecret
	}
	return maskedSecret + s[len(s)-maskVisibleChars:]
}

// Origin names where an effective setting came from.
type Origin string

// Setting origins, lowest precedence first.
const (
	OriginDefault Origin = "default"
	OriginFile    Origin = "file"
	OriginEnv     Origin = "env"
)

// Setting is one resolved configuration entry.
type Setting struct {
	Key    string
	Value  string
	Origin Origin

	// Secret marks credentials that must be masked when displayed.
	Secret bool
}

// Display returns the value as it may be shown to a user.
func (s Setting) Display() string {
	if s.Secret {
		return MaskSecret(s.Value)
	}
	return s.Value
}
