package cmd

import (
	"os"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/config"
	"github.com/abdul-hamid-achik/prbalcheck/packages/logging"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "prbalcheck",
	Short: "Replay recorded Prbal API traffic against its response contract.",
	Long: `prbalcheck checks recorded request/response pairs of the Prbal
marketplace API against a catalog of per-endpoint rules, and carries the
identifiers captured from one response into the requests that follow it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevelFlag == "" {
			return nil
		}
		if err := logging.Initialize(logLevelFlag); err != nil {
			return withExitCode(ExitUsageError, err)
		}
		return nil
	},
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("PRBALCHECK_CONFIG", ""), "Path to config file (env: PRBALCHECK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config, or the first one found
// in the working directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
