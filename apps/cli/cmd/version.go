package cmd

import (
	"fmt"
	"runtime"

	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "prbalcheck %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Built: %s\n", buildTime)
		fmt.Fprintf(out, "Rules: %d built-in\n", rules.Default().Len())
	},
}
