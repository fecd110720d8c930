package rules

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"
	"github.com/abdul-hamid-achik/prbalcheck/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   30 * time.Millisecond,
	}
}

func evaluate(t *testing.T, id string, resp *http.Response, req *http.Request, store *env.Store) *assertions.Result {
	t.Helper()
	rule, ok := Default().Lookup(id)
	require.True(t, ok, "rule %s not registered", id)
	return assertions.NewEngine(assertions.WithLogger(zap.NewNop())).Evaluate(rule, resp, req, store)
}

func TestDefault_CoversEveryEndpoint(t *testing.T) {
	want := []string{
		"auth.register", "auth.login",
		"profiles.get", "profiles.update", "profiles.upload_image",
		"skills.list", "skills.create",
		"categories.list",
		"services.create", "services.update", "services.get", "services.list", "services.search",
		"requests.create", "requests.list", "requests.available",
		"bids.create", "bids.mine", "bids.get", "bids.accept", "bids.reject", "bids.price_suggestion",
		"bookings.list", "bookings.get", "bookings.update_status", "bookings.confirm", "bookings.cancel",
		"reviews.create", "reviews.mine", "reviews.get", "reviews.respond", "reviews.provider",
		"chat.history", "chat.send", "chat.mark_read",
		"payments.list", "payments.initiate",
		"authz.unauthorized", "authz.forbidden",
	}

	c := Default()
	assert.Equal(t, len(want), c.Len())
	for _, id := range want {
		_, ok := c.Lookup(id)
		assert.True(t, ok, id)
	}
}

func TestDefault_ProviderLogin(t *testing.T) {
	store := env.NewStore()
	store.Set("customer_access_token", "cust")
	resp := createResponse(200, `{"access":"A","refresh":"R","user":{"id":42,"user_type":"PROVIDER"}}`)

	result := evaluate(t, "auth.login", resp, nil, store)

	assert.True(t, result.Passed(), result.Summary())
	assert.Equal(t, map[string]string{
		"customer_access_token":  "cust",
		"provider_access_token":  "A",
		"provider_refresh_token": "R",
		"provider_id":            "42",
	}, store.Snapshot())
}

func TestDefault_UnknownRoleWritesNothing(t *testing.T) {
	store := env.NewStore()
	resp := createResponse(201, `{"access":"A","refresh":"R","user":{"id":1,"email":"x@y.z","user_type":"ADMIN"}}`)

	result := evaluate(t, "auth.register", resp, nil, store)

	assert.True(t, result.Passed(), result.Summary())
	assert.Equal(t, 0, store.Len())
}

func TestDefault_ServiceCreated(t *testing.T) {
	store := env.NewStore()
	resp := createResponse(201, `{"id":7,"name":"Plumbing","category":{"id":3},"hourly_rate":"50.00"}`)

	result := evaluate(t, "services.create", resp, nil, store)

	assert.True(t, result.Passed(), result.Summary())
	v, _ := store.Get("service_id")
	assert.Equal(t, "7", v)
}

func TestDefault_ServiceSearchByCategory(t *testing.T) {
	req := http.NewRequest("GET", "https://api.prbal.test/api/services/?category=3")
	resp := createResponse(200, `{"count":2,"results":[{"category":{"id":3}},{"category":{"id":5}}]}`)

	result := evaluate(t, "services.search", resp, req, nil)

	require.False(t, result.Passed())
	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, assertions.ValueMismatch, failures[0].Kind)
	assert.Equal(t, "results[1].category.id", failures[0].Path)
}

func TestDefault_CategoriesCapture(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
		wantOK bool
	}{
		{name: "first result", body: `{"results":[{"id":11},{"id":12}]}`, wantID: "11", wantOK: true},
		{name: "empty results", body: `{"results":[]}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := env.NewStore()
			result := evaluate(t, "categories.list", createResponse(200, tt.body), nil, store)
			assert.True(t, result.Passed(), result.Summary())
			v, ok := store.Get("category_id")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, v)
		})
	}
}

func TestDefault_BidAcceptedBooking(t *testing.T) {
	store := env.NewStore()
	result := evaluate(t, "bids.accept", createResponse(200, `{"status":"ACCEPTED","booking":{"id":91}}`), nil, store)
	assert.True(t, result.Passed(), result.Summary())
	v, _ := store.Get("booking_id")
	assert.Equal(t, "91", v)

	store = env.NewStore()
	evaluate(t, "bids.accept", createResponse(200, `{"status":"ACCEPTED","booking":null}`), nil, store)
	assert.False(t, store.Has("booking_id"))
}

func TestDefault_BookingsListCapturesBoth(t *testing.T) {
	store := env.NewStore()
	result := evaluate(t, "bookings.list", createResponse(200, `{"results":[{"id":5}]}`), nil, store)

	assert.True(t, result.Passed(), result.Summary())
	assert.Equal(t, map[string]string{"booking_id": "5", "booking_id_for_review": "5"}, store.Snapshot())
}

func TestDefault_ServiceUpdateComparesStoredID(t *testing.T) {
	store := env.NewStore()
	store.Set("service_id", "7")
	req := http.NewRequest("PATCH", "https://api.prbal.test/api/services/7/").SetRawBody(`{"name":"Deep clean"}`)

	result := evaluate(t, "services.update", createResponse(200, `{"id":7,"name":"Deep clean"}`), req, store)
	assert.True(t, result.Passed(), result.Summary())

	result = evaluate(t, "services.update", createResponse(200, `{"id":8,"name":"Other"}`), req, store)
	assert.Len(t, result.FailuresOf(assertions.ValueMismatch), 2)

	result = evaluate(t, "services.update", createResponse(200, `{"id":7,"name":"Deep clean"}`), req, env.NewStore())
	mismatches := result.FailuresOf(assertions.ValueMismatch)
	require.Len(t, mismatches, 1, "an unset service_id never matches")
	assert.Equal(t, "{{service_id}}", mismatches[0].Expected)
}

func TestDefault_AvailableRequestsAreOpen(t *testing.T) {
	body := `{"results":[{"status":"OPEN"},{"status":"CLOSED"},{"status":"OPEN"},{"title":"x"}]}`

	result := evaluate(t, "requests.available", createResponse(200, body), nil, nil)

	assert.Len(t, result.FailuresOf(assertions.ValueMismatch), 1)
	assert.Len(t, result.FailuresOf(assertions.MissingField), 1)
}

func TestDefault_Unauthorized(t *testing.T) {
	anonymous := http.NewRequest("GET", "https://api.prbal.test/api/profiles/me/")
	result := evaluate(t, "authz.unauthorized", createResponse(401, `{"detail":"no credentials"}`), anonymous, nil)
	assert.True(t, result.Passed(), result.Summary())

	authed := http.NewRequest("GET", "https://api.prbal.test/api/profiles/me/").SetHeader("Authorization", "Bearer x")
	result = evaluate(t, "authz.unauthorized", createResponse(200, `{}`), authed, nil)
	assert.True(t, result.Skipped)
}

func TestDefault_ForbiddenIsNotImplemented(t *testing.T) {
	result := evaluate(t, "authz.forbidden", createResponse(403, `{}`), nil, nil)

	assert.True(t, result.Skipped)
	assert.False(t, result.Passed())
	assert.Empty(t, result.Failures())
}

func TestDefault_PaymentsInitiateAcceptsBothCodes(t *testing.T) {
	for _, code := range []int{200, 201} {
		result := evaluate(t, "payments.initiate", createResponse(code, `{"client_secret":"pi_1"}`), nil, nil)
		assert.True(t, result.Passed(), "status %d: %s", code, result.Summary())
	}
	result := evaluate(t, "payments.initiate", createResponse(400, `{}`), nil, nil)
	assert.Len(t, result.FailuresOf(assertions.StatusMismatch), 1)
}

func TestDefault_BookingCancelPrefix(t *testing.T) {
	result := evaluate(t, "bookings.cancel", createResponse(200, `{"status":"cancelled_by_customer"}`), nil, nil)
	assert.True(t, result.Passed(), result.Summary())

	result = evaluate(t, "bookings.cancel", createResponse(200, `{"status":"confirmed"}`), nil, nil)
	assert.Len(t, result.FailuresOf(assertions.ValueMismatch), 1)
}

func TestDefault_EmptyBodyReportsEachMissingPathOnce(t *testing.T) {
	catalog := Default()
	engine := assertions.NewEngine(assertions.WithLogger(zap.NewNop()))

	for _, id := range catalog.IDs() {
		t.Run(id, func(t *testing.T) {
			rule, _ := catalog.Lookup(id)
			status := 200
			if len(rule.Status.Codes) > 0 {
				status = rule.Status.Codes[0]
			}
			req := http.NewRequest("GET", "https://api.prbal.test/api/").
				SetQueryParam("category", "3").
				SetRawBody(`{"full_name":"Ada","name":"Plumbing","status":"CONFIRMED"}`)
			store := env.NewStore()
			store.SetAll(map[string]string{"service_id": "7", "request_id": "5", "bid_id": "9"})

			result := engine.Evaluate(rule, createResponse(status, `{}`), req, store)

			seen := make(map[string]int)
			for _, o := range result.FailuresOf(assertions.MissingField) {
				seen[o.Path]++
			}
			for path, n := range seen {
				assert.Equal(t, 1, n, "%s reported missing %d times", path, n)
			}
		})
	}
}
