package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
	"github.com/slub/lisztbib/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyZoteroAPIKey         = "zotero.api_key"
	KeyZoteroGroupID        = "zotero.group_id"
	KeyZoteroBulkSize       = "zotero.bulk_size"
	KeyZoteroAPIURL         = "zotero.api_url"
	KeyZoteroSchemaURL      = "zotero.schema_url"
	KeyZoteroRequestsPerSec = "zotero.requests_per_second"
	KeyElasticAddresses     = "elastic.addresses"
	KeyElasticUsername      = "elastic.username"
	KeyElasticPassword      = "elastic.password"
	KeyElasticAPIKey        = "elastic.api_key"
	KeyElasticIndexName     = "elastic.index_name"
	KeyElasticLocaleIndex   = "elastic.locale_index_name"
	KeyElasticBulkSize      = "elastic.bulk_size"
	KeyHTTPTimeoutSeconds   = "http.timeout_seconds"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LISZTBIB_"

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindList
)

var knownKeys = map[string]keyKind{
	KeyZoteroAPIKey:         kindString,
	KeyZoteroGroupID:        kindString,
	KeyZoteroBulkSize:       kindInt,
	KeyZoteroAPIURL:         kindString,
	KeyZoteroSchemaURL:      kindString,
	KeyZoteroRequestsPerSec: kindFloat,
	KeyElasticAddresses:     kindList,
	KeyElasticUsername:      kindString,
	KeyElasticPassword:      kindString,
	KeyElasticAPIKey:        kindString,
	KeyElasticIndexName:     kindString,
	KeyElasticLocaleIndex:   kindString,
	KeyElasticBulkSize:      kindInt,
	KeyHTTPTimeoutSeconds:   kindInt,
}

// SecretKeys are masked when the configuration is displayed.
var SecretKeys = []string{KeyZoteroAPIKey, KeyElasticPassword, KeyElasticAPIKey}

// SettingsService resolves the sync configuration from defaults, the config
// store and environment overrides, in that order.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// If lookupEnv is nil, the process environment is used.
func NewSettingsService(configStore driven.ConfigStore, lookupEnv func(string) (string, bool)) *SettingsService {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   lookupEnv,
	}
}

// EnvName returns the environment variable overriding key,
// e.g. "zotero.api_key" becomes "LISZTBIB_ZOTERO_API_KEY".
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get returns the effective configuration. The result is not validated;
// the pipeline validates it on construction.
func (s *SettingsService) Get() (*domain.SyncConfig, error) {
	cfg := domain.DefaultSyncConfig()

	cfg.Zotero.APIKey = s.getString(KeyZoteroAPIKey, cfg.Zotero.APIKey)
	cfg.Zotero.GroupID = s.getString(KeyZoteroGroupID, cfg.Zotero.GroupID)
	cfg.Zotero.APIURL = strings.TrimRight(s.getString(KeyZoteroAPIURL, cfg.Zotero.APIURL), "/")
	cfg.Zotero.SchemaURL = s.getString(KeyZoteroSchemaURL, cfg.Zotero.SchemaURL)
	cfg.Elastic.Username = s.getString(KeyElasticUsername, cfg.Elastic.Username)
	cfg.Elastic.Password = s.getString(KeyElasticPassword, cfg.Elastic.Password)
	cfg.Elastic.APIKey = s.getString(KeyElasticAPIKey, cfg.Elastic.APIKey)
	cfg.Elastic.IndexName = s.getString(KeyElasticIndexName, cfg.Elastic.IndexName)
	cfg.Elastic.LocaleIndexName = s.getString(KeyElasticLocaleIndex, cfg.Elastic.LocaleIndexName)
	cfg.Elastic.Addresses = s.getList(KeyElasticAddresses, cfg.Elastic.Addresses)

	var err error
	if cfg.Zotero.BulkSize, err = s.getInt(KeyZoteroBulkSize, cfg.Zotero.BulkSize); err != nil {
		return nil, err
	}
	if cfg.Elastic.BulkSize, err = s.getInt(KeyElasticBulkSize, cfg.Elastic.BulkSize); err != nil {
		return nil, err
	}
	if cfg.Zotero.RequestsPerSecond, err = s.getFloat(KeyZoteroRequestsPerSec, cfg.Zotero.RequestsPerSecond); err != nil {
		return nil, err
	}
	timeout, err := s.getInt(KeyHTTPTimeoutSeconds, int(cfg.Timeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeout) * time.Second

	return &cfg, nil
}

// Settings lists every recognised key with its effective value.
func (s *SettingsService) Settings() ([]domain.Setting, error) {
	cfg, err := s.Get()
	if err != nil {
		return nil, err
	}
	values := settingValues(cfg)

	keys := s.Keys()
	out := make([]domain.Setting, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.Setting{
			Key:    key,
			Value:  values[key],
			Origin: s.origin(key),
			Secret: slices.Contains(SecretKeys, key),
		})
	}
	return out, nil
}

func (s *SettingsService) origin(key string) domain.Origin {
	if v, ok := s.lookupEnv(EnvName(key)); ok && v != "" {
		return domain.OriginEnv
	}
	if _, ok := s.configStore.Get(key); ok {
		return domain.OriginFile
	}
	return domain.OriginDefault
}

// settingValues renders cfg keyed by configuration key.
func settingValues(cfg *domain.SyncConfig) map[string]string {
	return map[string]string{
		KeyZoteroAPIKey:         cfg.Zotero.APIKey,
		KeyZoteroGroupID:        cfg.Zotero.GroupID,
		KeyZoteroBulkSize:       strconv.Itoa(cfg.Zotero.BulkSize),
		KeyZoteroAPIURL:         cfg.Zotero.APIURL,
		KeyZoteroSchemaURL:      cfg.Zotero.SchemaURL,
		KeyZoteroRequestsPerSec: strconv.FormatFloat(cfg.Zotero.RequestsPerSecond, 'g', -1, 64),
		KeyElasticAddresses:     strings.Join(cfg.Elastic.Addresses, ","),
		KeyElasticUsername:      cfg.Elastic.Username,
		KeyElasticPassword:      cfg.Elastic.Password,
		KeyElasticAPIKey:        cfg.Elastic.APIKey,
		KeyElasticIndexName:     cfg.Elastic.IndexName,
		KeyElasticLocaleIndex:   cfg.Elastic.LocaleIndexName,
		KeyElasticBulkSize:      strconv.Itoa(cfg.Elastic.BulkSize),
		KeyHTTPTimeoutSeconds:   strconv.Itoa(int(cfg.Timeout / time.Second)),
	}
}

// Set validates and persists a single key. Numeric and list values are
// converted from their string form.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := knownKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown configuration key %q", domain.ErrInvalidInput, key)
	}

	var stored any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %q", domain.ErrInvalidInput, key, value)
		}
		stored = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %q", domain.ErrInvalidInput, key, value)
		}
		stored = f
	case kindList:
		stored = splitList(value)
	default:
		stored = value
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the recognised configuration keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Helper methods for reading config with env override and default.

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.lookupEnv(EnvName(key)); ok && v != "" {
		return v
	}
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) (int, error) {
	if v, ok := s.lookupEnv(EnvName(key)); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer: %q", domain.ErrInvalidConfig, EnvName(key), v)
		}
		return n, nil
	}
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key), nil
	}
	return defaultVal, nil
}

func (s *SettingsService) getFloat(key string, defaultVal float64) (float64, error) {
	if v, ok := s.lookupEnv(EnvName(key)); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number: %q", domain.ErrInvalidConfig, EnvName(key), v)
		}
		return f, nil
	}
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetFloat(key), nil
	}
	return defaultVal, nil
}

func (s *SettingsService) getList(key string, defaultVal []string) []string {
	if v, ok := s.lookupEnv(EnvName(key)); ok && v != "" {
		return splitList(v)
	}
	if v := s.configStore.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return defaultVal
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
