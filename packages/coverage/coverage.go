// Package coverage reports which catalog rules a set of replayed
// transcripts actually exercised.
package coverage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
)

// Report represents a rule coverage report.
type Report struct {
	TotalRules      int                     `json:"totalRules"`
	CoveredRules    int                     `json:"coveredRules"`
	CoveragePercent float64                 `json:"coveragePercent"`
	ByGroup         map[string]*GroupReport `json:"byGroup,omitempty"`
	Rules           []RuleStatus            `json:"rules"`
}

// GroupReport represents coverage for one rule group.
type GroupReport struct {
	Group           string  `json:"group"`
	TotalRules      int     `json:"totalRules"`
	CoveredRules    int     `json:"coveredRules"`
	CoveragePercent float64 `json:"coveragePercent"`
}

// RuleStatus is the coverage of one rule. NotImplemented rules can never be
// covered and are left out of the totals.
type RuleStatus struct {
	ID             string `json:"id"`
	Group          string `json:"group"`
	Covered        bool   `json:"covered"`
	Exchanges      int    `json:"exchanges"`
	Passed         int    `json:"passed"`
	Failed         int    `json:"failed"`
	NotImplemented bool   `json:"notImplemented,omitempty"`
}

// Analyzer accumulates evaluated exchanges against a catalog.
type Analyzer struct {
	catalog *rules.Catalog
	passed  map[string]int
	failed  map[string]int
}

func NewAnalyzer(catalog *rules.Catalog) *Analyzer {
	return &Analyzer{
		catalog: catalog,
		passed:  make(map[string]int),
		failed:  make(map[string]int),
	}
}

// AddRun records the exchanges of result. Skipped exchanges and exchanges
// naming an unknown rule do not count.
func (a *Analyzer) AddRun(result *runner.RunResult) {
	if result == nil {
		return
	}
	for _, ex := range result.Results {
		if ex.Skipped || ex.Error != nil {
			continue
		}
		if ex.Passed {
			a.passed[ex.RuleID]++
		} else {
			a.failed[ex.RuleID]++
		}
	}
}

// Analyze builds the report for everything recorded so far.
func (a *Analyzer) Analyze() *Report {
	report := &Report{
		ByGroup: make(map[string]*GroupReport),
		Rules:   make([]RuleStatus, 0, a.catalog.Len()),
	}

	for _, id := range a.catalog.IDs() {
		rule, _ := a.catalog.Lookup(id)
		status := RuleStatus{
			ID:             id,
			Group:          rule.Group,
			Passed:         a.passed[id],
			Failed:         a.failed[id],
			NotImplemented: rule.NotImplemented != "",
		}
		status.Exchanges = status.Passed + status.Failed
		status.Covered = status.Exchanges > 0
		report.Rules = append(report.Rules, status)

		if status.NotImplemented {
			continue
		}

		report.TotalRules++
		if status.Covered {
			report.CoveredRules++
		}

		groupReport, exists := report.ByGroup[rule.Group]
		if !exists {
			groupReport = &GroupReport{Group: rule.Group}
			report.ByGroup[rule.Group] = groupReport
		}
		groupReport.TotalRules++
		if status.Covered {
			groupReport.CoveredRules++
		}
	}

	report.CoveragePercent = percent(report.CoveredRules, report.TotalRules)
	for _, groupReport := range report.ByGroup {
		groupReport.CoveragePercent = percent(groupReport.CoveredRules, groupReport.TotalRules)
	}

	return report
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total) * 100
}

// FormatConsole formats the report for console output.
func (r *Report) FormatConsole() string {
	var sb strings.Builder

	sb.WriteString("\nRule Coverage Report\n")
	sb.WriteString("====================\n\n")

	sb.WriteString(fmt.Sprintf("Total Rules:   %d\n", r.TotalRules))
	sb.WriteString(fmt.Sprintf("Covered Rules: %d\n", r.CoveredRules))
	sb.WriteString(fmt.Sprintf("Coverage:      %.1f%%\n\n", r.CoveragePercent))

	if len(r.ByGroup) > 0 {
		sb.WriteString("Coverage by Group:\n")

		groups := make([]string, 0, len(r.ByGroup))
		for group := range r.ByGroup {
			groups = append(groups, group)
		}
		sort.Strings(groups)

		for _, group := range groups {
			g := r.ByGroup[group]
			sb.WriteString(fmt.Sprintf("  %s: %d/%d (%.1f%%)\n", group, g.CoveredRules, g.TotalRules, g.CoveragePercent))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Rule Details:\n")
	for _, rule := range r.Rules {
		status := "[ ]"
		switch {
		case rule.NotImplemented:
			status = "[-]"
		case rule.Covered:
			status = "[x]"
		}
		sb.WriteString(fmt.Sprintf("  %s %s", status, rule.ID))
		if rule.Exchanges > 1 {
			sb.WriteString(fmt.Sprintf(" (x%d)", rule.Exchanges))
		}
		if rule.Failed > 0 {
			sb.WriteString(fmt.Sprintf(" %d failed", rule.Failed))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatJSON formats the report as JSON.
func (r *Report) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
