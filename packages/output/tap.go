package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
)

// TAPFormatter formats results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	rule       string
	passed     bool
	skipped    bool
	skipReason string
	error      string
	failures   []string
	warnings   []string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       r.Name,
			rule:       r.RuleID,
			passed:     r.Passed,
			skipped:    r.Skipped,
			skipReason: r.SkipReason,
		}

		if r.Error != nil {
			tr.error = r.Error.Error()
		}

		for _, o := range r.Failures() {
			tr.failures = append(tr.failures, fmt.Sprintf("%s %s: %s", o.Kind, o.Path, o.Message))
		}
		if r.Result != nil {
			tr.warnings = r.Result.Warnings
		}

		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		desc := r.name
		if r.rule != "" {
			desc = fmt.Sprintf("%s [%s]", r.name, r.rule)
		}

		if r.skipped {
			reason := r.skipReason
			if reason == "" || reason == "filtered out" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, desc, reason)
			continue
		}

		if r.error != "" {
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, desc)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.error))
			fmt.Fprintf(f.writer, "  severity: error\n")
			fmt.Fprintf(f.writer, "  ...\n")
			continue
		}

		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, desc)
		} else {
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, desc)
		}
		if len(r.failures) > 0 || len(r.warnings) > 0 {
			fmt.Fprintf(f.writer, "  ---\n")
			if len(r.failures) > 0 {
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, a := range r.failures {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
			}
			if len(r.warnings) > 0 {
				fmt.Fprintf(f.writer, "  warnings:\n")
				for _, w := range r.warnings {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(w))
				}
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	// Add final newline for proper TAP output
	fmt.Fprintln(f.writer)

	return nil
}

func escapeYAML(s string) string {
	// Quote when the string holds YAML indicator characters
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
