package http

import (
	"strings"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
)

// Response is a recorded response. Status, headers and body take part in
// evaluation; Duration only feeds latency reporting.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// Document parses the body as JSON. A body that is not JSON yields
// document.ErrInvalidJSON and an empty document, so every path resolves
// as missing.
func (r *Response) Document() (document.Value, error) {
	if len(r.Body) == 0 {
		return document.Nothing(), document.ErrInvalidJSON
	}
	return document.Parse(r.Body)
}

// Header looks up a header case-insensitively.
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// MediaType is the Content-Type without parameters, lower-cased.
func (r *Response) MediaType() string {
	mt, _, _ := strings.Cut(r.Header("Content-Type"), ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsJSON reports whether the declared media type is JSON, including
// suffixed types such as application/problem+json.
func (r *Response) IsJSON() bool {
	mt := r.MediaType()
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
