package assertions

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/capture"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
	"github.com/abdul-hamid-achik/prbalcheck/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   25 * time.Millisecond,
	}
}

func quietEngine(opts ...Option) *Engine {
	return NewEngine(append([]Option{WithLogger(zap.NewNop())}, opts...)...)
}

var serviceCreated = &Rule{
	ID:     "services.create",
	Name:   "Service created successfully",
	Status: When(201),
	Checks: []Check{
		Present{Path: "id"},
		Present{Path: "name"},
		Present{Path: "category"},
		Present{Path: "hourly_rate"},
	},
	Captures: []capture.Capturer{capture.Field("service_id", "id")},
}

func TestEngine_HardStatusMismatch(t *testing.T) {
	rule := &Rule{
		ID:     "skills.create",
		Status: Expect(201),
		Checks: []Check{Present{Path: "id"}, Present{Path: "name"}},
	}

	result := quietEngine().Evaluate(rule, createResponse(400, `{"name": ["required"]}`), nil, nil)

	assert.False(t, result.Passed())
	assert.False(t, result.Skipped)
	require.Len(t, result.FailuresOf(StatusMismatch), 1)
	assert.Len(t, result.FailuresOf(MissingField), 1, "checks still run after a status mismatch")
	assert.Len(t, result.Outcomes, 3)
}

func TestEngine_SoftStatusSkips(t *testing.T) {
	store := env.NewStore()

	result := quietEngine().Evaluate(serviceCreated, createResponse(400, `{"detail": "bad"}`), nil, store)

	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "status 400")
	assert.Empty(t, result.Failures())
	assert.Equal(t, 0, store.Len())
}

func TestEngine_ServiceCreatedScenario(t *testing.T) {
	store := env.NewStore()
	resp := createResponse(201, `{"id": 7, "name": "Plumbing", "category": {"id": 3}, "hourly_rate": 50}`)

	result := quietEngine().Evaluate(serviceCreated, resp, nil, store)

	assert.True(t, result.Passed(), result.Summary())
	assert.Len(t, result.Outcomes, 5)
	v, ok := store.Get("service_id")
	assert.True(t, ok)
	assert.Equal(t, "7", v)
	assert.Equal(t, map[string]string{"service_id": "7"}, result.Captures)
}

func TestEngine_MissingFieldsOnePerPath(t *testing.T) {
	resp := createResponse(201, `{"id": 7}`)

	result := quietEngine().Evaluate(serviceCreated, resp, nil, env.NewStore())

	missing := result.FailuresOf(MissingField)
	require.Len(t, missing, 3)
	var paths []string
	for _, o := range missing {
		paths = append(paths, o.Path)
	}
	assert.Equal(t, []string{"name", "category", "hourly_rate"}, paths)
}

func TestEngine_MissingFieldReportedOnce(t *testing.T) {
	tests := []struct {
		name    string
		checks  []Check
		skipped int
	}{
		{
			name:    "present then typed",
			checks:  []Check{Present{Path: "results"}, Typed{Path: "results", Kind: document.Sequence}},
			skipped: 1,
		},
		{
			name: "present typed and each",
			checks: []Check{
				Present{Path: "results"},
				Typed{Path: "results", Kind: document.Sequence},
				EachEquals{Sequence: "results", Field: "status", Value: "OPEN"},
			},
			skipped: 2,
		},
		{
			name:    "distinct paths are kept",
			checks:  []Check{Present{Path: "count"}, Present{Path: "results"}},
			skipped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &Rule{ID: "requests.list", Status: Expect(200), Checks: tt.checks}

			result := quietEngine().Evaluate(rule, createResponse(200, `{}`), nil, nil)

			assert.False(t, result.Passed())
			seen := make(map[string]int)
			for _, o := range result.FailuresOf(MissingField) {
				seen[o.Path]++
			}
			for path, n := range seen {
				assert.Equal(t, 1, n, path)
			}
			skipped := 0
			for _, o := range result.Outcomes {
				if o.Skipped {
					skipped++
					assert.Equal(t, "already reported missing", o.Message)
				}
			}
			assert.Equal(t, tt.skipped, skipped)
		})
	}
}

func TestEngine_NoCaptureAfterFailure(t *testing.T) {
	store := env.NewStore()
	resp := createResponse(201, `{"id": 7, "name": "Plumbing"}`)

	result := quietEngine().Evaluate(serviceCreated, resp, nil, store)

	assert.False(t, result.Passed())
	assert.False(t, store.Has("service_id"))
	assert.Nil(t, result.Captures)
}

func TestEngine_CaptureIdempotent(t *testing.T) {
	store := env.NewStore()
	resp := createResponse(201, `{"id": 7, "name": "Plumbing", "category": 3, "hourly_rate": 50}`)

	quietEngine().Evaluate(serviceCreated, resp, nil, store)
	first := store.Snapshot()
	quietEngine().Evaluate(serviceCreated, resp, nil, store)

	assert.Equal(t, first, store.Snapshot())
}

func TestEngine_NotImplemented(t *testing.T) {
	rule := &Rule{ID: "authz.forbidden", NotImplemented: "no executable assertion"}

	result := quietEngine().Evaluate(rule, createResponse(403, `{}`), nil, nil)

	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "not implemented")
	assert.False(t, result.Passed())
}

func TestEngine_Guard(t *testing.T) {
	rule := &Rule{ID: "authz.unauthorized", Status: Expect(401), Guard: WithoutHeader("Authorization")}

	anonymous := http.NewRequest("GET", "/api/bookings/")
	result := quietEngine().Evaluate(rule, createResponse(200, `{}`), anonymous, nil)
	assert.Len(t, result.FailuresOf(StatusMismatch), 1)

	authed := http.NewRequest("GET", "/api/bookings/").SetHeader("Authorization", "Bearer x")
	result = quietEngine().Evaluate(rule, createResponse(200, `{}`), authed, nil)
	assert.True(t, result.Skipped)
}

func TestEngine_BodyNotJSON(t *testing.T) {
	rule := &Rule{ID: "profiles.get", Status: Expect(200), Checks: []Check{Present{Path: "id"}}}

	result := quietEngine().Evaluate(rule, createResponse(200, `<html></html>`), nil, nil)

	assert.Len(t, result.FailuresOf(MissingField), 1)
	assert.Contains(t, result.Warnings, "response body is not JSON")
}

func TestEngine_MalformedRequestBodyLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rule := &Rule{
		ID:     "profiles.update",
		Status: Expect(200),
		Checks: []Check{Present{Path: "id"}, EchoesRequest{RequestField: "full_name", Path: "full_name"}},
	}
	req := http.NewRequest("PATCH", "/api/profiles/me/").SetRawBody("not-json{")

	result := NewEngine(WithLogger(zap.New(core))).Evaluate(rule, createResponse(200, `{"id": 1, "full_name": "Ada"}`), req, nil)

	assert.True(t, result.Passed(), result.Summary())
	assert.Empty(t, result.FailuresOf(ValueMismatch))
	assert.Equal(t, 1, logs.FilterMessage("malformed request body, skipping comparison").Len())
	assert.Contains(t, result.Warnings, "malformed request body, skipping comparison")
}

type recordingObserver struct {
	results []*Result
}

func (r *recordingObserver) ObserveResult(result *Result) {
	r.results = append(r.results, result)
}

func TestEngine_Observer(t *testing.T) {
	obs := &recordingObserver{}
	e := quietEngine(WithObserver(obs))

	e.Evaluate(serviceCreated, createResponse(500, `{}`), nil, nil)
	e.Evaluate(serviceCreated, createResponse(201, `{}`), nil, nil)

	require.Len(t, obs.results, 2)
	assert.True(t, obs.results[0].Skipped)
	assert.False(t, obs.results[1].Passed())
}

func TestStatus(t *testing.T) {
	assert.True(t, Expect(200, 201).Accepts(201))
	assert.False(t, Expect(200).Accepts(201))
	assert.True(t, Status{}.Accepts(418))
	assert.Equal(t, "when 201", When(201).String())
	assert.Equal(t, "[200 201]", Expect(200, 201).String())
}

func TestResult_Summary(t *testing.T) {
	r := &Result{Outcomes: []*Outcome{
		pass("present", "id"),
		fail("equals", ValueMismatch, "status", "REJECTED", "OPEN", "expected REJECTED, got \"OPEN\""),
	}}
	assert.Equal(t, `ValueMismatch status: expected REJECTED, got "OPEN"`, r.Summary())
	assert.Equal(t, "passed", (&Result{}).Summary())
	assert.Equal(t, "skipped: x", (&Result{Skipped: true, SkipReason: "x"}).Summary())
}
