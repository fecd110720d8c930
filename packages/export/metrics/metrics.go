// Package metrics counts rule evaluations in a Prometheus registry and
// writes them in the text exposition format, for node_exporter's textfile
// collector or a CI artifact.
package metrics

import (
	"strconv"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prbalcheck"

// Rule states reported by prbalcheck_rules_total.
const (
	StatePassed  = "passed"
	StateFailed  = "failed"
	StateSkipped = "skipped"
)

// Recorder is an assertions.Observer that counts outcomes, rule results
// and captured variables.
type Recorder struct {
	registry *prometheus.Registry

	outcomes *prometheus.CounterVec
	rules    *prometheus.CounterVec
	captures *prometheus.CounterVec
	warnings *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Individual assertion outcomes by rule, failure kind and result.",
		}, []string{"rule", "kind", "passed"}),
		rules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_total",
			Help:      "Rule evaluations by final state.",
		}, []string{"rule", "state"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Variables written to the store.",
		}, []string{"variable"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-failing problems reported while evaluating a rule.",
		}, []string{"rule"}),
	}
	r.registry.MustRegister(r.outcomes, r.rules, r.captures, r.warnings)
	return r
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveResult(result *assertions.Result) {
	state := StatePassed
	switch {
	case result.Skipped:
		state = StateSkipped
	case !result.Passed():
		state = StateFailed
	}
	r.rules.WithLabelValues(result.RuleID, state).Inc()

	for _, o := range result.Outcomes {
		if o.Skipped {
			continue
		}
		kind := o.Kind.String()
		if kind == "" {
			kind = "none"
		}
		r.outcomes.WithLabelValues(result.RuleID, kind, strconv.FormatBool(o.Passed)).Inc()
	}

	for name := range result.Captures {
		r.captures.WithLabelValues(name).Inc()
	}

	if n := len(result.Warnings); n > 0 {
		r.warnings.WithLabelValues(result.RuleID).Add(float64(n))
	}
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
