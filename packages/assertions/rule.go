package assertions

import (
	"fmt"
	"slices"

	"github.com/abdul-hamid-achik/prbalcheck/packages/capture"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
	"github.com/abdul-hamid-achik/prbalcheck/packages/http"
	"go.uber.org/zap"
)

// Status is a rule's status expectation. A hard expectation reports a
// StatusMismatch when the code is not in Codes. A soft one skips the whole
// rule instead, for endpoints whose success code varies. Empty
// Codes means no status expectation.
type Status struct {
	Codes []int
	Soft  bool
}

// Expect is a hard expectation of one of codes.
func Expect(codes ...int) Status {
	return Status{Codes: codes}
}

// When is a soft expectation: the rule only applies to these codes.
func When(codes ...int) Status {
	return Status{Codes: codes, Soft: true}
}

func (s Status) Accepts(code int) bool {
	return len(s.Codes) == 0 || slices.Contains(s.Codes, code)
}

func (s Status) String() string {
	if len(s.Codes) == 0 {
		return "any"
	}
	prefix := ""
	if s.Soft {
		prefix = "when "
	}
	if len(s.Codes) == 1 {
		return fmt.Sprintf("%s%d", prefix, s.Codes[0])
	}
	return fmt.Sprintf("%s%v", prefix, s.Codes)
}

// Guard decides from the request whether a rule applies at all.
type Guard struct {
	Name   string
	allows func(req *http.Request) bool
}

func (g *Guard) Allows(req *http.Request) bool {
	return g == nil || g.allows == nil || g.allows(req)
}

// WithoutHeader applies the rule only to requests that do not carry name.
func WithoutHeader(name string) *Guard {
	return &Guard{
		Name: "without header " + name,
		allows: func(req *http.Request) bool {
			return !req.HasHeader(name)
		},
	}
}

// WithHeader applies the rule only to requests that carry name.
func WithHeader(name string) *Guard {
	return &Guard{
		Name: "with header " + name,
		allows: func(req *http.Request) bool {
			return req.HasHeader(name)
		},
	}
}

// Rule describes what a response to one endpoint must look like and which
// values it hands on to later requests.
type Rule struct {
	ID     string
	Name   string
	Group  string
	Status Status
	Guard  *Guard
	Checks []Check
	// Captures run only when no check failed.
	Captures []capture.Capturer
	// NotImplemented marks endpoints that have no executable assertion
	// yet; they always evaluate as skipped with this reason.
	NotImplemented string
}

// Check is one declared assertion. It returns at least one outcome.
type Check interface {
	Name() string
	Check(ctx *Context) []*Outcome
}

// Context is what a check may read.
type Context struct {
	Response *http.Response
	Request  *http.Request
	Body     document.Value
	Store    *env.Store
	Logger   *zap.Logger

	warnings []string
}

// Warn records a non-failing problem on the result and logs it.
func (c *Context) Warn(msg string, fields ...zap.Field) {
	c.warnings = append(c.warnings, msg)
	if c.Logger != nil {
		c.Logger.Warn(msg, fields...)
	}
}
