package capture

import (
	"testing"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) document.Value {
	t.Helper()
	doc, err := document.ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestCapture_Extract(t *testing.T) {
	doc := mustParse(t, `{"id": 7, "name": "Plumbing", "booking": null, "results": []}`)

	t.Run("present field", func(t *testing.T) {
		writes, skip := Field("service_id", "id").Extract(doc)
		assert.Empty(t, skip)
		assert.Equal(t, map[string]string{"service_id": "7"}, writes)
	})

	t.Run("missing field", func(t *testing.T) {
		writes, skip := Field("review_id", "review.id").Extract(doc)
		assert.Nil(t, writes)
		assert.Contains(t, skip, "review_id")
	})

	t.Run("null field", func(t *testing.T) {
		writes, _ := Field("booking_id", "booking").Extract(doc)
		assert.Nil(t, writes)
	})

	t.Run("non-empty condition not met", func(t *testing.T) {
		c := &Capture{Name: "message_id", Path: "results[0].id", When: WhenNonEmpty("results")}
		writes, skip := c.Extract(doc)
		assert.Nil(t, writes)
		assert.Contains(t, skip, "non_empty:results")
	})

	t.Run("prefix transform", func(t *testing.T) {
		c := &Capture{Name: "service_ref", Path: "id", Transform: WithPrefix("svc-")}
		writes, _ := c.Extract(doc)
		assert.Equal(t, "svc-7", writes["service_ref"])
	})
}

func TestCapture_NonEmptySequence(t *testing.T) {
	doc := mustParse(t, `{"results": [{"id": 11}, {"id": 12}]}`)
	c := &Capture{Name: "booking_id", Path: "results[0].id", When: WhenNonEmpty("results")}

	writes, skip := c.Extract(doc)
	assert.Empty(t, skip)
	assert.Equal(t, "11", writes["booking_id"])
}

func TestCapture_WhenTruthy(t *testing.T) {
	c := &Capture{Name: "booking_id", Path: "booking.id", When: WhenTruthy("booking.id")}

	writes, _ := c.Extract(mustParse(t, `{"status": "ACCEPTED", "booking": {"id": 5}}`))
	assert.Equal(t, "5", writes["booking_id"])

	writes, _ = c.Extract(mustParse(t, `{"status": "ACCEPTED", "booking": {"id": 0}}`))
	assert.Nil(t, writes)
}

func TestWhenEquals(t *testing.T) {
	doc := mustParse(t, `{"status": "SUBMITTED", "id": 4}`)
	c := &Capture{Name: "bid_id", Path: "id", When: WhenEquals("status", "SUBMITTED")}
	writes, _ := c.Extract(doc)
	assert.Equal(t, "4", writes["bid_id"])

	c.When = WhenEquals("status", "REJECTED")
	writes, _ = c.Extract(doc)
	assert.Nil(t, writes)
}

func TestExtractAll(t *testing.T) {
	doc := mustParse(t, `{"results": [{"id": 3}]}`)
	writes, skipped := ExtractAll(doc, []Capturer{
		&Capture{Name: "booking_id", Path: "results[0].id", When: WhenNonEmpty("results")},
		&Capture{Name: "booking_id_for_review", Path: "results[0].id", When: WhenNonEmpty("results")},
		Field("payment_id", "payment.id"),
	})

	assert.Equal(t, map[string]string{"booking_id": "3", "booking_id_for_review": "3"}, writes)
	assert.Len(t, skipped, 1)
}

func TestParseTransformAndCondition(t *testing.T) {
	for _, name := range []string{"", "stringify", "lower", "upper", "prefix:Bearer "} {
		_, err := ParseTransform(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseTransform("base64")
	assert.Error(t, err)

	c, err := ParseCondition("non_empty:results")
	require.NoError(t, err)
	assert.Equal(t, "non_empty:results", c.Name)
	_, err = ParseCondition("sometimes")
	assert.Error(t, err)
}

func TestParseCondition_Equals(t *testing.T) {
	tests := []struct {
		name    string
		cond    string
		body    string
		holds   bool
		wantErr bool
	}{
		{name: "string matches", cond: "equals:status=SUBMITTED", body: `{"status":"SUBMITTED"}`, holds: true},
		{name: "string differs", cond: "equals:status=SUBMITTED", body: `{"status":"ACCEPTED"}`},
		{name: "number", cond: "equals:user.id=7", body: `{"user":{"id":7}}`, holds: true},
		{name: "number is not its string", cond: "equals:user.id=7", body: `{"user":{"id":"7"}}`},
		{name: "quoted string", cond: `equals:code="7"`, body: `{"code":"7"}`, holds: true},
		{name: "boolean", cond: "equals:is_read=true", body: `{"is_read":true}`, holds: true},
		{name: "value with equals sign", cond: "equals:token=a=b", body: `{"token":"a=b"}`, holds: true},
		{name: "missing path", cond: "equals:status=SUBMITTED", body: `{}`},
		{name: "no value", cond: "equals:status", wantErr: true},
		{name: "no path", cond: "equals:=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCondition(tt.cond)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			doc, err := document.ParseString(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.holds, c.Holds(doc, doc))
		})
	}
}
