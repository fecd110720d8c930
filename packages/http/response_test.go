package http

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Document(t *testing.T) {
	resp := &Response{
		StatusCode: 201,
		Headers:    map[string]string{"content-type": "application/json; charset=utf-8"},
		Body:       []byte(`{"id": 7, "name": "Plumbing"}`),
		Duration:   42 * time.Millisecond,
	}

	doc, err := resp.Document()
	require.NoError(t, err)
	assert.Equal(t, "7", doc.Get("id").Stringify())
	assert.Equal(t, "application/json", resp.MediaType())
	assert.True(t, resp.IsJSON())
}

func TestResponse_DocumentNotJSON(t *testing.T) {
	resp := &Response{
		StatusCode: 500,
		Headers:    map[string]string{"Content-Type": "text/html"},
		Body:       []byte("<html>oops</html>"),
	}

	doc, err := resp.Document()
	assert.ErrorIs(t, err, document.ErrInvalidJSON)
	assert.False(t, doc.Get("id").Exists())
	assert.False(t, resp.IsJSON())

	_, err = (&Response{StatusCode: 204}).Document()
	assert.ErrorIs(t, err, document.ErrInvalidJSON)
}

func TestResponse_IsJSON(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"Application/JSON; charset=utf-8", true},
		{"application/problem+json", true},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			resp := &Response{Headers: map[string]string{"Content-Type": tt.contentType}}
			assert.Equal(t, tt.want, resp.IsJSON())
		})
	}
}
