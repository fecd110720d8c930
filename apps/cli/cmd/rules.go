package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
	"github.com/spf13/cobra"
)

var (
	rulesGroupFlag []string
	rulesFileFlag  []string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules in the catalog",
	Long: `List the built-in rules, plus any rules declared in rule files.

Examples:
  prbalcheck rules
  prbalcheck rules --group bookings
  prbalcheck rules --rules custom.yaml`,
	Args: cobra.NoArgs,
	RunE: rulesCommand,
}

func init() {
	rulesCmd.Flags().StringSliceVar(&rulesGroupFlag, "group", nil, "Show only rules in group (repeatable)")
	rulesCmd.Flags().StringSliceVar(&rulesFileFlag, "rules", nil, "Extra YAML rule files (repeatable)")
}

func rulesCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := buildCatalog(append(append([]string{}, cfg.Rules...), rulesFileFlag...))
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	groups := rulesGroupFlag
	if len(groups) == 0 {
		groups = catalog.Groups()
	}

	return listRules(cmd.OutOrStdout(), catalog, groups)
}

func listRules(w io.Writer, catalog *rules.Catalog, groups []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, group := range groups {
		members := catalog.InGroup(group)
		if len(members) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s:\n", group)
		for _, rule := range members {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", rule.ID, rule.Status, describe(rule))
		}
	}
	return tw.Flush()
}

func describe(rule *assertions.Rule) string {
	if rule.NotImplemented != "" {
		return "not implemented: " + rule.NotImplemented
	}
	desc := fmt.Sprintf("%d checks, %d captures", len(rule.Checks), len(rule.Captures))
	if rule.Guard != nil {
		desc += ", " + rule.Guard.Name
	}
	return desc
}
