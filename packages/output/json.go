package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Runs     []JSONRun   `json:"runs"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary represents the totals across every run
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONRun is one replayed transcript
type JSONRun struct {
	Name      string            `json:"name"`
	File      string            `json:"file,omitempty"`
	RunID     string            `json:"runId"`
	Latency   JSONLatency       `json:"latency"`
	Exchanges []JSONExchange    `json:"exchanges"`
	Variables map[string]string `json:"variables,omitempty"`
}

// JSONLatency holds recorded response latency in milliseconds
type JSONLatency struct {
	Count int64   `json:"count"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONExchange represents a single exchange result
type JSONExchange struct {
	Name       string            `json:"name"`
	Rule       string            `json:"rule"`
	Group      string            `json:"group,omitempty"`
	Passed     bool              `json:"passed"`
	Skipped    bool              `json:"skipped,omitempty"`
	SkipReason string            `json:"skipReason,omitempty"`
	Duration   float64           `json:"duration"`
	Error      string            `json:"error,omitempty"`
	Request    *JSONRequest      `json:"request,omitempty"`
	Response   *JSONResponse     `json:"response,omitempty"`
	Outcomes   []JSONOutcome     `json:"outcomes,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Captures   map[string]string `json:"captures,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONOutcome represents one assertion outcome
type JSONOutcome struct {
	Check    string `json:"check"`
	Kind     string `json:"kind,omitempty"`
	Path     string `json:"path,omitempty"`
	Passed   bool   `json:"passed"`
	Skipped  bool   `json:"skipped,omitempty"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Message  string `json:"message,omitempty"`
}

func toMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	writer io.Writer
	runs   []JSONRun
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		runs:   make([]JSONRun, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	run := JSONRun{
		Name:  result.Name,
		File:  result.File,
		RunID: result.RunID,
		Latency: JSONLatency{
			Count: result.Latency.Count,
			P50:   toMs(result.Latency.P50),
			P95:   toMs(result.Latency.P95),
			P99:   toMs(result.Latency.P99),
			Max:   toMs(result.Latency.Max),
		},
		Exchanges: make([]JSONExchange, 0, len(result.Results)),
		Variables: result.Variables,
	}

	for _, r := range result.Results {
		ex := JSONExchange{
			Name:     r.Name,
			Rule:     r.RuleID,
			Group:    r.Group,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: toMs(r.Duration),
			Captures: r.Captures,
		}

		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			ex.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			ex.Error = r.Error.Error()
		}

		if r.Request != nil {
			ex.Request = &JSONRequest{
				Method:  r.Request.Method,
				URL:     r.Request.BuildURL(),
				Headers: r.Request.Headers,
			}
		}

		if r.Response != nil {
			ex.Response = &JSONResponse{
				StatusCode: r.Response.StatusCode,
				Headers:    r.Response.Headers,
				Duration:   toMs(r.Response.Duration),
			}
		}

		if r.Result != nil {
			ex.Warnings = r.Result.Warnings
			for _, o := range r.Result.Outcomes {
				ex.Outcomes = append(ex.Outcomes, JSONOutcome{
					Check:    o.Check,
					Kind:     o.Kind.String(),
					Path:     o.Path,
					Passed:   o.Passed,
					Skipped:  o.Skipped,
					Expected: o.Expected,
					Actual:   o.Actual,
					Message:  o.Message,
				})
			}
		}

		run.Exchanges = append(run.Exchanges, ex)
	}

	f.runs = append(f.runs, run)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual exchange results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, run := range f.runs {
		for _, ex := range run.Exchanges {
			summary.Total++
			switch {
			case ex.Skipped:
				summary.Skipped++
			case ex.Passed:
				summary.Passed++
			default:
				summary.Failed++
			}
		}
	}

	output := JSONOutput{
		Summary:  summary,
		Runs:     f.runs,
		Duration: toMs(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
