package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case nil:
		return "<missing>"
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case []int:
		if len(val) == 1 {
			return fmt.Sprintf("%d", val[0])
		}
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Replaying: "+result.Name))
	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Results {
		if r.Skipped {
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name)
			if r.SkipReason != "" && r.SkipReason != "filtered out" {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		}

		if r.Error != nil {
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), r.Name, red(fmt.Sprintf("(%v)", r.Error)))
			continue
		}

		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}

		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("[%s] (%s)", r.RuleID, ms(r.Duration))))

		if f.verbose && r.Response != nil {
			fmt.Fprintf(f.writer, "    Status: %d\n", r.Response.StatusCode)
		}

		for _, o := range r.Failures() {
			fmt.Fprintf(f.writer, "    %s %s %s\n", red("→"), o.Kind, o.Path)
			fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(o.Expected, 100))
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(o.Actual, 100))
			if o.Message != "" {
				fmt.Fprintf(f.writer, "      %s\n", o.Message)
			}
		}

		if r.Result != nil {
			for _, w := range r.Result.Warnings {
				fmt.Fprintf(f.writer, "    %s %s\n", yellow("!"), w)
			}
		}

		if f.verbose && len(r.Captures) > 0 {
			fmt.Fprintf(f.writer, "    Captures:\n")
			names := make([]string, 0, len(r.Captures))
			for name := range r.Captures {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(f.writer, "      %s = %s\n", name, formatValue(r.Captures[name], 40))
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Exchanges: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	if l := result.Latency; l.Count > 0 {
		fmt.Fprintf(f.writer, "Latency:   p50 %s, p95 %s, p99 %s, max %s\n", ms(l.P50), ms(l.P95), ms(l.P99), ms(l.Max))
	}
	fmt.Fprintf(f.writer, "Time:      %s\n", ms(result.Duration))
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("prbalcheck"), version)
}
