package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/config"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
	"github.com/abdul-hamid-achik/prbalcheck/packages/coverage"
	"github.com/abdul-hamid-achik/prbalcheck/packages/db"
	"github.com/abdul-hamid-achik/prbalcheck/packages/export/metrics"
	"github.com/abdul-hamid-achik/prbalcheck/packages/logging"
	"github.com/abdul-hamid-achik/prbalcheck/packages/output"
	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run <transcript|directory>...",
	Short: "Replay transcripts against the rule catalog",
	Long: `Replay recorded exchanges from YAML or JSON transcripts. Each exchange
names the rule its response must satisfy; values captured from one response
are available to the requests that follow it as {{name}}.

Examples:
  prbalcheck run journey.yaml
  prbalcheck run ./transcripts/ --group auth --group bookings
  prbalcheck run auth.yaml --state-db .prbalcheck.db
  prbalcheck run bookings.yaml --state-db .prbalcheck.db --resume
  prbalcheck run journey.yaml -o junit --output-file report.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// VariableEnvPrefix marks OS environment variables that seed the store.
	VariableEnvPrefix = "PRBALCHECK_VAR_"
)

var (
	envFlag        string
	envFileFlag    string
	rulesFlag      []string
	nameFlag       string
	groupFlag      []string
	bailFlag       bool
	outputFlag     string
	outputFileFlag string
	noColorFlag    bool
	verboseFlag    bool
	stateDBFlag    string
	resumeFlag     bool
	metricsFlag    string
	watchFlag      bool
	coverageFlag   bool
)

func init() {
	runCmd.Flags().StringVarP(&envFlag, "env", "e", "", "Environment from the config file to seed variables from")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", "", "Path to .env file with initial variables")
	runCmd.Flags().StringSliceVar(&rulesFlag, "rules", nil, "Extra YAML rule files (repeatable)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only exchanges matching name pattern")
	runCmd.Flags().StringSliceVar(&groupFlag, "group", nil, "Run only exchanges whose rule is in group (repeatable)")
	runCmd.Flags().BoolVar(&bailFlag, "bail", false, "Skip the remaining exchanges after the first failure")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output format: console, json, junit, tap")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show status codes and captured values")
	runCmd.Flags().StringVar(&stateDBFlag, "state-db", "", "SQLite file the variable store is saved to after the run")
	runCmd.Flags().BoolVar(&resumeFlag, "resume", false, "Start from the store saved in --state-db")
	runCmd.Flags().StringVar(&metricsFlag, "metrics-file", "", "Write Prometheus metrics in text format to file")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch transcripts for changes and replay them")
	runCmd.Flags().BoolVar(&coverageFlag, "coverage", false, "Print which catalog rules the transcripts exercised to stderr")
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// runFlagsConfig turns the flags that were set on cmd into a config layer
// that takes precedence over the config file.
func runFlagsConfig(cmd *cobra.Command) *config.Config {
	flags := &config.Config{
		Environment: envFlag,
		EnvFile:     envFileFlag,
		Rules:       rulesFlag,
		Output:      outputFlag,
		OutputFile:  outputFileFlag,
		LogLevel:    logLevelFlag,
		StateDB:     stateDBFlag,
		MetricsFile: metricsFlag,
	}
	if cmd.Flags().Changed("bail") {
		flags.Bail = config.BoolPtr(bailFlag)
	}
	if cmd.Flags().Changed("verbose") {
		flags.Verbose = config.BoolPtr(verboseFlag)
	}
	if cmd.Flags().Changed("no-color") {
		flags.NoColor = config.BoolPtr(noColorFlag)
	}
	return flags
}

// newFormatter builds the formatter named by format writing to w.
func newFormatter(format string, w io.Writer, cfg *config.Config) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w)), nil
	case "junit":
		return output.NewJUnitFormatter(output.JUnitWithWriter(w)), nil
	case "tap":
		return output.NewTAPFormatter(output.TAPWithWriter(w)), nil
	case "", "console":
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		), nil
	}
	return nil, fmt.Errorf("unknown output format %q (use console, json, junit or tap)", format)
}

// buildCatalog merges the rule files into the built-in catalog. Later files
// override rules of the same id.
func buildCatalog(paths []string) (*rules.Catalog, error) {
	catalog := rules.Default()
	for _, path := range paths {
		extra, err := rules.LoadFile(path)
		if err != nil {
			return nil, err
		}
		catalog = catalog.Merge(extra)
	}
	return catalog, nil
}

// seedVariables collects the initial variables of a run. Later sources win:
// the config environment, then the .env file, then config variables, then
// PRBALCHECK_VAR_* from the OS environment.
func seedVariables(cfg *config.Config) (map[string]string, error) {
	var dotenv map[string]string
	if cfg.EnvFile != "" {
		vars, err := env.LoadDotEnv(cfg.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
		dotenv = vars
	}
	return env.MergeVariables(
		env.LoadEnvironment(cfg.Environment, cfg.Environments),
		dotenv,
		cfg.Variables,
		env.LoadSystemEnv(VariableEnvPrefix),
	), nil
}

// runTotals aggregates the results of every transcript of one invocation.
type runTotals struct {
	passed, failed, skipped int
	parseErrors             int
	duration                time.Duration
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := fileConfig.Merge(runFlagsConfig(cmd))

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	logger := logging.L

	if resumeFlag && cfg.StateDB == "" {
		return withExitCode(ExitUsageError, fmt.Errorf("--resume requires --state-db"))
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml, .yml or .json transcripts found"))
	}

	catalog, err := buildCatalog(cfg.Rules)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	variables, err := seedVariables(cfg)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	var outWriter io.Writer = cmd.OutOrStdout()
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer f.Close()
		outWriter = f
	}

	formatter, err := newFormatter(cfg.Output, outWriter, cfg)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	runnerOpts := []runner.Option{runner.WithLogger(logger)}

	// With a state database every transcript shares one store, so the
	// whole invocation can be saved and resumed as one journey.
	var stateDB *db.Client
	var store *env.Store
	if cfg.StateDB != "" {
		stateDB, err = db.Open(cfg.StateDB)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		defer stateDB.Close()

		store = env.NewStore()
		if resumeFlag {
			if err := stateDB.Restore(cmd.Context(), store); err != nil {
				return withExitCode(ExitConfigError, err)
			}
			logger.Info("resumed variable store",
				zap.String("run_id", store.RunID()),
				zap.Int("variables", store.Len()))
		}
		runnerOpts = append(runnerOpts, runner.WithStore(store))
	}

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
		runnerOpts = append(runnerOpts, runner.WithObserver(recorder))
	}

	r := runner.NewRunner(&runner.Config{
		Verbose:     cfg.GetVerbose(),
		Bail:        cfg.GetBail(),
		NameFilter:  nameFlag,
		GroupFilter: groupFlag,
		Variables:   variables,
	}, catalog, runnerOpts...)

	runAll := func(formatter Formatter) runTotals {
		var totals runTotals
		analyzer := coverage.NewAnalyzer(catalog)
		startTime := time.Now()

		for _, file := range files {
			result, err := r.RunFile(file)
			if err != nil {
				formatter.FormatError(err)
				totals.parseErrors++
				continue
			}

			formatter.FormatResult(result)
			analyzer.AddRun(result)
			totals.passed += result.Passed
			totals.failed += result.Failed
			totals.skipped += result.Skipped

			if cfg.GetBail() && result.Failed > 0 {
				break
			}
		}

		totals.duration = time.Since(startTime)
		if coverageFlag {
			fmt.Fprint(cmd.ErrOrStderr(), analyzer.Analyze().FormatConsole())
		}
		return totals
	}

	// finish flushes accumulated output and saves state after a pass.
	finish := func(formatter Formatter, totals runTotals) error {
		if flushable, ok := formatter.(Flushable); ok {
			if err := flushable.Flush(totals.duration); err != nil {
				return withExitCode(ExitConfigError, fmt.Errorf("error writing output: %w", err))
			}
		}
		if stateDB != nil {
			if err := stateDB.Persist(cmd.Context(), store); err != nil {
				return withExitCode(ExitConfigError, err)
			}
			logger.Debug("saved variable store",
				zap.String("path", cfg.StateDB),
				zap.Int("variables", store.Len()))
		}
		if recorder != nil {
			if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
				return withExitCode(ExitConfigError, err)
			}
		}
		return nil
	}

	totals := runAll(formatter)
	if err := finish(formatter, totals); err != nil {
		return err
	}

	if !watchFlag {
		return totals.exitError()
	}

	return watch(cmd, args, files, formatter, func() {
		formatter, err := newFormatter(cfg.Output, outWriter, cfg)
		if err != nil {
			return
		}
		totals := runAll(formatter)
		if err := finish(formatter, totals); err != nil {
			formatter.FormatError(err)
		}
	})
}

func (t runTotals) exitError() error {
	switch {
	case t.parseErrors > 0:
		return withExitCode(ExitParseError, fmt.Errorf("%d transcript(s) could not be parsed", t.parseErrors))
	case t.failed > 0:
		return withExitCode(ExitTestFailure, fmt.Errorf("%d exchange(s) failed", t.failed))
	}
	return nil
}

// watch re-runs rerun whenever a transcript changes, until interrupted.
func watch(cmd *cobra.Command, args, files []string, formatter Formatter, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Add files and directories to watch
	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				formatter.FormatError(fmt.Errorf("failed to watch %s: %w", dir, err))
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	replay := serialize(func(name string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n\nFile changed: %s\nReplaying...\n\n", name)
		rerun()
		fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	})

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isTranscriptFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() { replay(name) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// serialize wraps fn so that calls never overlap. A timer that fires while
// a replay is still running waits for it to finish.
func serialize(fn func(string)) func(string) {
	var mu sync.Mutex
	return func(name string) {
		mu.Lock()
		defer mu.Unlock()
		fn(name)
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isTranscriptFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if isTranscriptFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

func isTranscriptFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
