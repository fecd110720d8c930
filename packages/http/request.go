package http

import (
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
)

// BodyModeRaw is the only body mode whose content is inspected by checks.
const BodyModeRaw = "raw"

// Body is a request body as recorded by the client: a mode ("raw",
// "formdata", "urlencoded", "file") and, for raw bodies, the text sent.
type Body struct {
	Mode string
	Raw  string
}

// Request describes the request that produced a response.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    *Body
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
		Query:   make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetRawBody(raw string) *Request {
	r.Body = &Body{Mode: BodyModeRaw, Raw: raw}
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.Query[key] = value
	return r
}

// Header returns a header value, matching the name case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (r *Request) HasHeader(name string) bool {
	_, ok := r.Header(name)
	return ok
}

// QueryParam looks a parameter up in Query first and falls back to the
// query string of URL.
func (r *Request) QueryParam(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	if v, ok := r.Query[name]; ok {
		return v, true
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", false
	}
	values := u.Query()
	if !values.Has(name) {
		return "", false
	}
	return values.Get(name), true
}

// RawJSON parses a raw body as JSON. ok is false when there is nothing to
// parse (no body, a non-raw mode or an empty raw string). err is set when
// the raw text is not JSON.
func (r *Request) RawJSON() (doc document.Value, ok bool, err error) {
	if r == nil || r.Body == nil || r.Body.Mode != BodyModeRaw || r.Body.Raw == "" {
		return document.Nothing(), false, nil
	}
	doc, err = document.ParseString(r.Body.Raw)
	if err != nil {
		return document.Nothing(), true, err
	}
	return doc, true, nil
}

// BuildURL merges Query into the URL's query string.
func (r *Request) BuildURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Resolve returns a copy of r with the URL, header values, query values and
// raw body passed through resolver.
func (r *Request) Resolve(resolver func(string) string) *Request {
	if r == nil {
		return nil
	}
	out := NewRequest(r.Method, resolver(r.URL))
	for k, v := range r.Headers {
		out.Headers[k] = resolver(v)
	}
	for k, v := range r.Query {
		out.Query[k] = resolver(v)
	}
	if r.Body != nil {
		out.Body = &Body{Mode: r.Body.Mode, Raw: r.Body.Raw}
		if r.Body.Mode == BodyModeRaw {
			out.Body.Raw = resolver(r.Body.Raw)
		}
	}
	return out
}
