package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/db"
	"github.com/spf13/cobra"
)

var (
	storeDBFlag         string
	storeExportName     string
	storeExportFileFlag string
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the persisted variable store",
	Long: `Show, reset or export the variable store saved by "run --state-db".

Examples:
  prbalcheck store show --state-db .prbalcheck.db
  prbalcheck store export --name staging > staging.postman_environment.json
  prbalcheck store reset`,
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved run id and variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStateDB(cmd, func(client *db.Client) error {
			store := env.NewStore()
			if err := client.Restore(cmd.Context(), store); err != nil {
				return withExitCode(ExitConfigError, err)
			}
			showStore(cmd.OutOrStdout(), store)
			return nil
		})
	},
}

var storeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every saved variable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStateDB(cmd, func(client *db.Client) error {
			if err := client.Clear(cmd.Context()); err != nil {
				return withExitCode(ExitConfigError, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Store cleared")
			return nil
		})
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the saved variables as a Postman environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStateDB(cmd, func(client *db.Client) error {
			store := env.NewStore()
			if err := client.Restore(cmd.Context(), store); err != nil {
				return withExitCode(ExitConfigError, err)
			}
			data, err := store.ExportPostman(storeExportName)
			if err != nil {
				return fmt.Errorf("failed to export store: %w", err)
			}
			if storeExportFileFlag != "" {
				if err := os.WriteFile(storeExportFileFlag, data, 0o644); err != nil {
					return withExitCode(ExitConfigError, fmt.Errorf("failed to write export: %w", err))
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		})
	},
}

func init() {
	storeCmd.PersistentFlags().StringVar(&storeDBFlag, "state-db", "", "SQLite file holding the store (default: stateDB from config)")
	storeExportCmd.Flags().StringVar(&storeExportName, "name", "prbalcheck", "Name of the exported environment")
	storeExportCmd.Flags().StringVar(&storeExportFileFlag, "output-file", "", "Write the export to file (default: stdout)")

	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeResetCmd)
	storeCmd.AddCommand(storeExportCmd)
}

// withStateDB opens the state database named by --state-db or the config and
// hands it to fn.
func withStateDB(cmd *cobra.Command, fn func(client *db.Client) error) error {
	path := storeDBFlag
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.StateDB
	}
	if path == "" {
		return withExitCode(ExitUsageError, fmt.Errorf("no state database: pass --state-db or set stateDB in the config"))
	}

	client, err := db.Open(path)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer client.Close()

	return fn(client)
}

func showStore(w io.Writer, store *env.Store) {
	fmt.Fprintf(w, "Run: %s\n", store.RunID())
	if store.Len() == 0 {
		fmt.Fprintln(w, "(no variables)")
		return
	}
	for _, name := range store.Keys() {
		value, _ := store.Get(name)
		fmt.Fprintf(w, "  %s = %s\n", name, value)
	}
}
