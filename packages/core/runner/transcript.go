package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/http"
	"gopkg.in/yaml.v3"
)

// Transcript is a recorded session against the API.
type Transcript struct {
	Name      string            `yaml:"name" json:"name"`
	Path      string            `yaml:"-" json:"-"`
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Exchanges []*Exchange       `yaml:"exchanges" json:"exchanges"`
}

// Exchange is one request, its response and the rule that judges it.
type Exchange struct {
	Name     string            `yaml:"name" json:"name"`
	Rule     string            `yaml:"rule" json:"rule"`
	Skip     string            `yaml:"skip,omitempty" json:"skip,omitempty"`
	Request  *RecordedRequest  `yaml:"request" json:"request"`
	Response *RecordedResponse `yaml:"response" json:"response"`
}

type RecordedRequest struct {
	Method  string            `yaml:"method" json:"method"`
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Query   map[string]string `yaml:"query,omitempty" json:"query,omitempty"`
	Body    *RecordedBody     `yaml:"body,omitempty" json:"body,omitempty"`
}

type RecordedBody struct {
	Mode string `yaml:"mode" json:"mode"`
	Raw  string `yaml:"raw,omitempty" json:"raw,omitempty"`
}

// RecordedResponse holds the response. Body is any YAML/JSON value; a
// plain string is taken as the literal body text, anything else is
// re-encoded as JSON.
type RecordedResponse struct {
	Status     int               `yaml:"status" json:"status"`
	Headers    map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	DurationMs int64             `yaml:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	Body       any               `yaml:"body,omitempty" json:"body,omitempty"`
}

// LoadTranscript reads a transcript from a YAML or JSON file.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	t, err := ParseTranscript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	if t.Name == "" {
		t.Name = path
	}
	return t, nil
}

// ParseTranscript decodes a transcript. JSON input is accepted since it is
// valid YAML.
func ParseTranscript(data []byte) (*Transcript, error) {
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	for i, ex := range t.Exchanges {
		if ex == nil {
			return nil, fmt.Errorf("exchange %d: empty", i+1)
		}
		if ex.Name == "" {
			ex.Name = fmt.Sprintf("exchange %d", i+1)
		}
		if ex.Rule == "" {
			return nil, fmt.Errorf("exchange %q: missing rule", ex.Name)
		}
		if ex.Response == nil {
			return nil, fmt.Errorf("exchange %q: missing response", ex.Name)
		}
	}
	return &t, nil
}

// HTTPRequest converts the recorded request. It returns nil when the
// exchange recorded no request.
func (ex *Exchange) HTTPRequest() *http.Request {
	rec := ex.Request
	if rec == nil {
		return nil
	}
	req := http.NewRequest(rec.Method, rec.URL)
	for k, v := range rec.Headers {
		req.SetHeader(k, v)
	}
	for k, v := range rec.Query {
		req.SetQueryParam(k, v)
	}
	if rec.Body != nil {
		req.Body = &http.Body{Mode: rec.Body.Mode, Raw: rec.Body.Raw}
	}
	return req
}

// HTTPResponse converts the recorded response.
func (ex *Exchange) HTTPResponse() (*http.Response, error) {
	rec := ex.Response
	resp := &http.Response{
		StatusCode: rec.Status,
		Headers:    make(map[string]string, len(rec.Headers)),
		Duration:   time.Duration(rec.DurationMs) * time.Millisecond,
	}
	for k, v := range rec.Headers {
		resp.Headers[k] = v
	}

	switch body := rec.Body.(type) {
	case nil:
	case string:
		resp.Body = []byte(body)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("exchange %q: encoding response body: %w", ex.Name, err)
		}
		resp.Body = data
	}
	return resp, nil
}
