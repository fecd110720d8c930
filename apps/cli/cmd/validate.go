package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate rule files and transcripts without evaluating them",
	Long: `Parse rule files and transcripts without evaluating any exchange.
Rule files are recognised by their top-level "rules" key. Transcripts are
also checked for exchanges naming a rule that is not in the catalog.

Examples:
  prbalcheck validate custom-rules.yaml
  prbalcheck validate ./transcripts/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml, .yml or .json files found"))
	}

	if !validateFiles(cmd.OutOrStdout(), cmd.ErrOrStderr(), files) {
		return withExitCode(ExitParseError, fmt.Errorf("validation failed"))
	}
	return nil
}

// validateFiles reports on every file and returns whether all were valid.
// Rule files are loaded first so transcripts can refer to their rules.
func validateFiles(stdout, stderr io.Writer, files []string) bool {
	var ruleFiles, transcripts []string
	for _, file := range files {
		if isRuleFile(file) {
			ruleFiles = append(ruleFiles, file)
		} else {
			transcripts = append(transcripts, file)
		}
	}

	valid := true
	catalog := rules.Default()
	for _, file := range ruleFiles {
		extra, err := rules.LoadFile(file)
		if err != nil {
			fmt.Fprintf(stderr, "Error in %s: %v\n", file, err)
			valid = false
			continue
		}
		catalog = catalog.Merge(extra)
		fmt.Fprintf(stdout, "Valid: %s (%d rules)\n", file, extra.Len())
	}

	for _, file := range transcripts {
		t, err := runner.LoadTranscript(file)
		if err != nil {
			fmt.Fprintf(stderr, "Error in %s: %v\n", file, err)
			valid = false
			continue
		}
		unknown := 0
		for _, ex := range t.Exchanges {
			if _, ok := catalog.Lookup(ex.Rule); !ok {
				fmt.Fprintf(stderr, "Error in %s: exchange %q: unknown rule %q\n", file, ex.Name, ex.Rule)
				unknown++
			}
		}
		if unknown > 0 {
			valid = false
			continue
		}
		fmt.Fprintf(stdout, "Valid: %s (%d exchanges)\n", file, len(t.Exchanges))
	}

	return valid
}

// isRuleFile reports whether path holds a document with a top-level "rules"
// key. Unreadable files are treated as transcripts so the error surfaces
// from the transcript loader.
func isRuleFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return false
	}
	_, ok := top["rules"]
	return ok
}
