package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the bibliography and locale indices",
	Long: `Fetches every top-level item of the configured Zotero group and the
locale data of the item schema, then replaces both Elasticsearch indices.

Each index is deleted and recreated before it is loaded, so searches see
an empty or missing index while a sync runs. A failed sync leaves
whatever was written before the failure in place; run it again to
restore a complete index.

With --dry-run the documents are loaded into an in-memory index and
only the resulting counts are printed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Fetch and load into memory without touching Elasticsearch")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}

	cfg, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	pipeline, err := svc.NewSync(*cfg, SyncOptions{
		DryRun:   syncDryRun,
		Progress: NewProgressPrinter(out),
	})
	if err != nil {
		return err
	}

	if syncDryRun {
		cmd.Printf("Dry run: syncing group %s into memory\n", cfg.Zotero.GroupID)
	} else {
		cmd.Printf("Syncing group %s into %s and %s\n",
			cfg.Zotero.GroupID, cfg.Elastic.IndexName, cfg.Elastic.LocaleIndexName)
	}

	report, err := pipeline.Sync(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Println()
	cmd.Println(newStyles().Success.Render("Sync complete"))
	cmd.Printf("  %-16s %d documents in %d batches\n", cfg.Elastic.IndexName+":",
		report.Items, report.BibliographyBatches)
	cmd.Printf("  %-16s %d documents in %d batches\n", cfg.Elastic.LocaleIndexName+":",
		report.Locales, report.LocaleBatches)
	cmd.Printf("  Run %s took %s\n", report.RunID, report.Duration().Round(time.Millisecond))
	return nil
}
