package coverage

import (
	"errors"
	"testing"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/runner"
	"github.com/abdul-hamid-achik/prbalcheck/packages/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func sampleRun() *runner.RunResult {
	return &runner.RunResult{
		Results: []*runner.ExchangeResult{
			{RuleID: "auth.login", Passed: true},
			{RuleID: "auth.login", Passed: false},
			{RuleID: "services.create", Passed: true},
			{RuleID: "bookings.list", Skipped: true},
			{RuleID: "nope.missing", Error: errors.New("unknown rule")},
		},
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	catalog := rules.Default()
	analyzer := NewAnalyzer(catalog)
	analyzer.AddRun(sampleRun())
	analyzer.AddRun(nil)

	report := analyzer.Analyze()

	assert.Equal(t, catalog.Len()-1, report.TotalRules, "not implemented rules are excluded")
	assert.Equal(t, 2, report.CoveredRules)
	assert.InDelta(t, 200.0/float64(catalog.Len()-1), report.CoveragePercent, 0.001)
	assert.Len(t, report.Rules, catalog.Len())

	auth := report.ByGroup["auth"]
	require.NotNil(t, auth)
	assert.Equal(t, 2, auth.TotalRules)
	assert.Equal(t, 1, auth.CoveredRules)
	assert.Equal(t, 50.0, auth.CoveragePercent)

	bookings := report.ByGroup["bookings"]
	require.NotNil(t, bookings)
	assert.Zero(t, bookings.CoveredRules)
}

func TestAnalyzer_RuleStatus(t *testing.T) {
	analyzer := NewAnalyzer(rules.Default())
	analyzer.AddRun(sampleRun())

	statuses := make(map[string]RuleStatus)
	for _, s := range analyzer.Analyze().Rules {
		statuses[s.ID] = s
	}

	login := statuses["auth.login"]
	assert.True(t, login.Covered)
	assert.Equal(t, 2, login.Exchanges)
	assert.Equal(t, 1, login.Passed)
	assert.Equal(t, 1, login.Failed)

	assert.False(t, statuses["bookings.list"].Covered)
	assert.True(t, statuses["authz.forbidden"].NotImplemented)
	_, ok := statuses["nope.missing"]
	assert.False(t, ok)
}

func TestAnalyzer_EmptyCatalog(t *testing.T) {
	report := NewAnalyzer(rules.NewCatalog()).Analyze()
	assert.Zero(t, report.TotalRules)
	assert.Zero(t, report.CoveragePercent)
}

func TestReport_FormatConsole(t *testing.T) {
	analyzer := NewAnalyzer(rules.Default())
	analyzer.AddRun(sampleRun())

	out := analyzer.Analyze().FormatConsole()
	assert.Contains(t, out, "Rule Coverage Report")
	assert.Contains(t, out, "auth: 1/2 (50.0%)")
	assert.Contains(t, out, "[x] auth.login (x2) 1 failed")
	assert.Contains(t, out, "[x] services.create\n")
	assert.Contains(t, out, "[ ] bookings.list\n")
	assert.Contains(t, out, "[-] authz.forbidden\n")
}

func TestReport_FormatJSON(t *testing.T) {
	analyzer := NewAnalyzer(rules.Default())
	analyzer.AddRun(sampleRun())

	out, err := analyzer.Analyze().FormatJSON()
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.Get(out, "coveredRules").Int())
	assert.Equal(t, int64(1), gjson.Get(out, "byGroup.auth.coveredRules").Int())
}
