package cmd

import "errors"

// Exit codes for the prbalcheck CLI
const (
	// ExitSuccess indicates every exchange passed or was skipped
	ExitSuccess = 0

	// ExitTestFailure indicates one or more exchanges failed
	ExitTestFailure = 1

	// ExitParseError indicates a transcript or rule file could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration or state database error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for err up to Execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps an error returned by a command to an exit code. Errors
// without one come from cobra's own flag and argument validation.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsageError
}
