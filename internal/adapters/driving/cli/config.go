package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
	Long: `Show or change the lisztbib configuration.

Settings are read from the configuration file and may be overridden by
LISZTBIB_* environment variables, for example LISZTBIB_ZOTERO_API_KEY.
A .env file in the working directory is loaded into the environment first.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long: `Persist a configuration value to the configuration file.

List values such as elastic.addresses are comma-separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}

	settings, err := svc.Settings.Settings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Configuration file: %s\n\n", svc.Settings.Path())

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, s := range settings {
		value := s.Display()
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(w, "%s\t%s\t(%s)\n", s.Key, value, s.Origin)
	}
	return w.Flush()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := svc.Settings.Set(key, value); err != nil {
		return err
	}

	cmd.Printf("Set %s in %s\n", key, svc.Settings.Path())
	return nil
}
