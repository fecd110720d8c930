package assertions

import (
	"fmt"

	"github.com/abdul-hamid-achik/prbalcheck/packages/capture"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/http"
	"github.com/abdul-hamid-achik/prbalcheck/packages/logging"
	"go.uber.org/zap"
)

// Observer is notified of every finished evaluation.
type Observer interface {
	ObserveResult(result *Result)
}

// Engine evaluates rules. The zero value is usable and logs through
// logging.L.
type Engine struct {
	logger    *zap.Logger
	observers []Observer
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for warnings and capture traces.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log() *zap.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logging.L
}

// Evaluate checks resp against rule and, if every check passed, writes the
// rule's captures into store. store may be nil.
func Evaluate(rule *Rule, resp *http.Response, req *http.Request, store *env.Store) *Result {
	return NewEngine().Evaluate(rule, resp, req, store)
}

func (e *Engine) Evaluate(rule *Rule, resp *http.Response, req *http.Request, store *env.Store) *Result {
	result := e.evaluate(rule, resp, req, store)
	for _, o := range e.observers {
		o.ObserveResult(result)
	}
	return result
}

func (e *Engine) evaluate(rule *Rule, resp *http.Response, req *http.Request, store *env.Store) *Result {
	logger := e.log().With(zap.String("rule", rule.ID))
	result := &Result{
		RuleID:     rule.ID,
		Name:       rule.Name,
		StatusCode: resp.StatusCode,
	}

	if rule.NotImplemented != "" {
		result.Skipped = true
		result.SkipReason = "not implemented: " + rule.NotImplemented
		return result
	}
	if !rule.Guard.Allows(req) {
		result.Skipped = true
		result.SkipReason = "guard not met: " + rule.Guard.Name
		return result
	}

	if !rule.Status.Accepts(resp.StatusCode) {
		if rule.Status.Soft {
			result.Skipped = true
			result.SkipReason = fmt.Sprintf("status %d not in %v", resp.StatusCode, rule.Status.Codes)
			return result
		}
		result.Outcomes = append(result.Outcomes, fail("status", StatusMismatch, "", rule.Status.Codes, resp.StatusCode,
			"expected status %s, got %d", rule.Status, resp.StatusCode))
	} else if len(rule.Status.Codes) > 0 {
		result.Outcomes = append(result.Outcomes, pass("status", ""))
	}

	ctx := &Context{
		Response: resp,
		Request:  req,
		Store:    store,
		Logger:   logger,
	}
	body, err := resp.Document()
	if err != nil && (len(rule.Checks) > 0 || len(rule.Captures) > 0) {
		ctx.Warn("response body is not JSON",
			zap.Int("bytes", len(resp.Body)),
			zap.String("media_type", resp.MediaType()))
	}
	ctx.Body = body

	// A path is reported missing once; later checks on it are skipped.
	missing := make(map[string]bool)
	for _, check := range rule.Checks {
		for _, o := range check.Check(ctx) {
			if o.Kind == MissingField && !o.Passed {
				if missing[o.Path] {
					o = skip(o.Check, o.Path, "already reported missing")
				}
				missing[o.Path] = true
			}
			result.Outcomes = append(result.Outcomes, o)
		}
	}
	result.Warnings = ctx.warnings

	if len(result.Failures()) > 0 {
		if len(rule.Captures) > 0 {
			logger.Debug("captures skipped after failed checks")
		}
		return result
	}

	writes, skipped := capture.ExtractAll(body, rule.Captures)
	for _, reason := range skipped {
		logger.Debug("capture skipped", zap.String("reason", reason))
	}
	if len(writes) > 0 {
		result.Captures = writes
		if store != nil {
			store.SetAll(writes)
		}
		for name, value := range writes {
			logger.Debug("captured", zap.String("variable", name), zap.Int("length", len(value)))
		}
	}
	return result
}
