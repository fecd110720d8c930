package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/http"
	"github.com/abdul-hamid-achik/prbalcheck/packages/logging"
	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
	"go.uber.org/zap"
)

type Runner struct {
	catalog   *rules.Catalog
	config    *Config
	store     *env.Store
	logger    *zap.Logger
	observers []assertions.Observer
}

type Config struct {
	Verbose     bool
	Bail        bool
	NameFilter  string
	GroupFilter []string
	// Variables seed the store before the transcript's own variables.
	Variables map[string]string
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithStore makes every run share store instead of starting empty. Used to
// resume a persisted run.
func WithStore(store *env.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func WithObserver(o assertions.Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, o)
	}
}

// NewRunner creates a runner over catalog; a nil catalog means the built-in
// rules.
func NewRunner(cfg *Config, catalog *rules.Catalog, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if catalog == nil {
		catalog = rules.Default()
	}
	r := &Runner{
		catalog: catalog,
		config:  cfg,
		logger:  logging.L,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type RunResult struct {
	File      string
	Name      string
	RunID     string
	Results   []*ExchangeResult
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Latency   Latency
	ByRule    map[string]Latency
	Variables map[string]string
}

// Success is true when no exchange failed or errored.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

type ExchangeResult struct {
	Name       string
	RuleID     string
	RuleName   string
	Group      string
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Request    *http.Request
	Response   *http.Response
	Result     *assertions.Result
	Captures   map[string]string
	Error      error
}

// Failures returns the failed outcomes of the evaluation, if any.
func (r *ExchangeResult) Failures() []*assertions.Outcome {
	if r.Result == nil {
		return nil
	}
	return r.Result.Failures()
}

func (r *Runner) RunFile(path string) (*RunResult, error) {
	t, err := LoadTranscript(path)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}
	return r.Run(t), nil
}

// Run replays t in order.
func (r *Runner) Run(t *Transcript) *RunResult {
	start := time.Now()
	logger := r.logger.With(zap.String("transcript", t.Name))

	store := r.store
	if store == nil {
		store = env.NewStore()
	}
	store.Seed(r.config.Variables)
	store.Seed(t.Variables)
	store.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})
	defer store.SetWarnFunc(nil)

	engineOpts := []assertions.Option{assertions.WithLogger(logger)}
	for _, o := range r.observers {
		engineOpts = append(engineOpts, assertions.WithObserver(o))
	}
	engine := assertions.NewEngine(engineOpts...)

	result := &RunResult{
		File:  t.Path,
		Name:  t.Name,
		RunID: store.RunID(),
	}
	latency := newLatencyRecorder()
	bailed := false

	for _, ex := range t.Exchanges {
		var exResult *ExchangeResult
		switch {
		case bailed:
			exResult = skipped(ex, "bail: earlier exchange failed")
		case ex.Skip != "":
			exResult = skipped(ex, ex.Skip)
		case !r.shouldRun(ex):
			exResult = skipped(ex, "filtered out")
		default:
			exResult = r.evaluate(engine, ex, store, logger)
			if exResult.Response != nil {
				latency.record(ex.Rule, exResult.Response.Duration)
			}
		}
		result.Results = append(result.Results, exResult)

		switch {
		case exResult.Skipped:
			result.Skipped++
		case exResult.Passed:
			result.Passed++
		default:
			result.Failed++
			if r.config.Bail {
				bailed = true
			}
		}
	}

	result.Latency = latency.summary()
	result.ByRule = latency.perRule()
	result.Variables = store.Snapshot()
	result.Duration = time.Since(start)
	return result
}

func skipped(ex *Exchange, reason string) *ExchangeResult {
	return &ExchangeResult{
		Name:       ex.Name,
		RuleID:     ex.Rule,
		Skipped:    true,
		SkipReason: reason,
	}
}

func (r *Runner) evaluate(engine *assertions.Engine, ex *Exchange, store *env.Store, logger *zap.Logger) *ExchangeResult {
	result := &ExchangeResult{
		Name:   ex.Name,
		RuleID: ex.Rule,
	}

	rule, ok := r.catalog.Lookup(ex.Rule)
	if !ok {
		result.Error = fmt.Errorf("unknown rule %q", ex.Rule)
		logger.Error("unknown rule", zap.String("exchange", ex.Name), zap.String("rule", ex.Rule))
		return result
	}
	result.RuleName = rule.Name
	result.Group = rule.Group

	resp, err := ex.HTTPResponse()
	if err != nil {
		result.Error = err
		return result
	}
	result.Response = resp
	result.Duration = resp.Duration

	req := ex.HTTPRequest().Resolve(store.Resolve)
	result.Request = req

	eval := engine.Evaluate(rule, resp, req, store)
	result.Result = eval
	result.Captures = eval.Captures
	result.Skipped = eval.Skipped
	result.SkipReason = eval.SkipReason
	result.Passed = eval.Passed()

	if r.config.Verbose {
		logger.Info("exchange evaluated",
			zap.String("exchange", ex.Name),
			zap.String("rule", ex.Rule),
			zap.Int("status", resp.StatusCode),
			zap.Bool("passed", result.Passed),
			zap.Bool("skipped", result.Skipped),
		)
	}
	return result
}

func (r *Runner) shouldRun(ex *Exchange) bool {
	if r.config.NameFilter != "" {
		if !matchesPattern(ex.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.GroupFilter) > 0 {
		rule, ok := r.catalog.Lookup(ex.Rule)
		if !ok {
			// Unknown rules still run so they surface as errors.
			return true
		}
		if !hasAnyGroup(rule.Group, r.config.GroupFilter) {
			return false
		}
	}

	return true
}

// matchesPattern supports a leading and/or trailing '*' wildcard.
func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if pattern == "*" {
		return true
	}

	leading := strings.HasPrefix(pattern, "*")
	trailing := strings.HasSuffix(pattern, "*")
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")

	switch {
	case leading && trailing:
		return strings.Contains(name, core)
	case leading:
		return strings.HasSuffix(name, core)
	case trailing:
		return strings.HasPrefix(name, core)
	}
	return name == pattern
}

func hasAnyGroup(group string, filters []string) bool {
	for _, filter := range filters {
		if group == filter {
			return true
		}
	}
	return false
}
