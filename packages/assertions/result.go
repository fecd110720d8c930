package assertions

import (
	"fmt"
	"strings"
)

// FailureKind classifies a failed outcome.
type FailureKind int

const (
	NoFailure FailureKind = iota
	StatusMismatch
	MissingField
	UnexpectedType
	ValueMismatch
	SchemaMismatch
)

var failureKindNames = map[FailureKind]string{
	NoFailure:      "",
	StatusMismatch: "StatusMismatch",
	MissingField:   "MissingField",
	UnexpectedType: "UnexpectedType",
	ValueMismatch:  "ValueMismatch",
	SchemaMismatch: "SchemaMismatch",
}

func (k FailureKind) String() string {
	return failureKindNames[k]
}

// MarshalText lets reporters and metrics use the kind name.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FailureKinds lists every failing kind.
func FailureKinds() []FailureKind {
	return []FailureKind{StatusMismatch, MissingField, UnexpectedType, ValueMismatch, SchemaMismatch}
}

// Outcome is the result of one individual assertion.
type Outcome struct {
	Check    string
	Kind     FailureKind
	Path     string
	Passed   bool
	Skipped  bool
	Message  string
	Expected any
	Actual   any
}

func pass(check, path string) *Outcome {
	return &Outcome{Check: check, Path: path, Passed: true}
}

func skip(check, path, reason string) *Outcome {
	return &Outcome{Check: check, Path: path, Passed: true, Skipped: true, Message: reason}
}

func fail(check string, kind FailureKind, path string, expected, actual any, format string, args ...any) *Outcome {
	return &Outcome{
		Check:    check,
		Kind:     kind,
		Path:     path,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (o *Outcome) String() string {
	if o.Passed {
		if o.Skipped {
			return fmt.Sprintf("skip %s %s: %s", o.Check, o.Path, o.Message)
		}
		return fmt.Sprintf("ok %s %s", o.Check, o.Path)
	}
	return fmt.Sprintf("%s %s: %s", o.Kind, o.Path, o.Message)
}

// Result is everything one evaluation produced.
type Result struct {
	RuleID     string
	Name       string
	StatusCode int
	Skipped    bool
	SkipReason string
	Outcomes   []*Outcome
	Captures   map[string]string
	Warnings   []string
}

// Passed is true when the rule ran and no outcome failed.
func (r *Result) Passed() bool {
	return !r.Skipped && len(r.Failures()) == 0
}

func (r *Result) Failures() []*Outcome {
	var out []*Outcome
	for _, o := range r.Outcomes {
		if !o.Passed {
			out = append(out, o)
		}
	}
	return out
}

func (r *Result) FailuresOf(kind FailureKind) []*Outcome {
	var out []*Outcome
	for _, o := range r.Failures() {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// Summary renders failures one per line.
func (r *Result) Summary() string {
	if r.Skipped {
		return "skipped: " + r.SkipReason
	}
	failures := r.Failures()
	if len(failures) == 0 {
		return "passed"
	}
	lines := make([]string, len(failures))
	for i, f := range failures {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}
