// Package cli implements the lisztbib command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
	"github.com/slub/lisztbib/internal/core/ports/driving"
	"github.com/slub/lisztbib/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// SyncOptions selects how a sync service is assembled.
type SyncOptions struct {
	// DryRun commits into an in-memory index instead of the cluster.
	DryRun bool

	// Progress receives progress notifications; may be nil.
	Progress driven.ProgressReporter
}

// Services bundles the collaborators the commands use.
type Services struct {
	Settings driving.SettingsService
	History  driving.HistoryService

	// NewSync assembles a sync service for cfg.
	NewSync func(cfg domain.SyncConfig, opts SyncOptions) (driving.SyncService, error)

	// Close releases resources; may be nil.
	Close func() error
}

// ServiceFactory builds the services for a configuration directory.
// An empty directory selects the default location.
type ServiceFactory func(configDir string) (*Services, error)

var (
	serviceFactory ServiceFactory
	services       *Services
)

// SetServiceFactory sets the factory used to build services on first use.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
	services = nil
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "lisztbib",
	Short: "Publish a Zotero group library to Elasticsearch",
	Long: `lisztbib rebuilds two Elasticsearch indices from a Zotero group library:
one holding the bibliography items and one holding the item schema's
locale data. Every sync replaces both indices completely.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"Configuration directory (default ~/.lisztbib)")
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// loadServices builds the services on first use.
func loadServices() (*Services, error) {
	if services != nil {
		return services, nil
	}
	if serviceFactory == nil {
		return nil, errors.New("services not configured")
	}
	s, err := serviceFactory(configDir)
	if err != nil {
		return nil, err
	}
	services = s
	return services, nil
}

func closeServices() {
	if services == nil {
		return
	}
	if services.Close != nil {
		if err := services.Close(); err != nil {
			logger.Warn("Failed to close services: %v", err)
		}
	}
	services = nil
}
