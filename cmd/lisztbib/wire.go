package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/slub/lisztbib/internal/adapters/driven/config/file"
	"github.com/slub/lisztbib/internal/adapters/driven/elastic"
	"github.com/slub/lisztbib/internal/adapters/driven/storage/memory"
	"github.com/slub/lisztbib/internal/adapters/driven/storage/sqlite"
	"github.com/slub/lisztbib/internal/adapters/driven/zotero"
	"github.com/slub/lisztbib/internal/adapters/driving/cli"
	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
	"github.com/slub/lisztbib/internal/core/ports/driving"
	"github.com/slub/lisztbib/internal/core/services"
	"github.com/slub/lisztbib/internal/logger"
)

// newServices wires the adapters for configDir. Run history is optional:
// if its database cannot be opened, syncs still run unrecorded.
func newServices(configDir string) (*cli.Services, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var runs driven.RunStore
	db, err := sqlite.NewStore(dataDir(configDir))
	if err != nil {
		logger.Warn("Run history unavailable: %v", err)
	} else {
		runs = db.RunStore()
	}

	return &cli.Services{
		Settings: services.NewSettingsService(store, nil),
		History:  services.NewHistoryService(runs),
		NewSync: func(cfg domain.SyncConfig, opts cli.SyncOptions) (driving.SyncService, error) {
			return newSyncService(cfg, opts, runs)
		},
		Close: func() error {
			if runs == nil {
				return nil
			}
			return runs.Close()
		},
	}, nil
}

// dataDir places the history database next to the config file. An empty
// config directory selects the store's default.
func dataDir(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "data")
}

// newSyncService assembles a pipeline. Dry runs load an in-memory index
// and are not recorded.
func newSyncService(cfg domain.SyncConfig, opts cli.SyncOptions, runs driven.RunStore) (driving.SyncService, error) {
	source := zotero.NewClient(cfg.Zotero, cfg.Timeout)

	if opts.DryRun {
		return services.NewSyncPipeline(cfg, source, memory.NewSearchIndex(), opts.Progress, nil)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	index, err := elastic.NewSearchIndex(cfg.Elastic, transport)
	if err != nil {
		return nil, err
	}
	return services.NewSyncPipeline(cfg, source, index, opts.Progress, runs)
}
