package assertions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
	"go.uber.org/zap"
)

// Present requires Path to resolve.
type Present struct {
	Path string
}

func (c Present) Name() string { return "present" }

func (c Present) Check(ctx *Context) []*Outcome {
	v := ctx.Body.Get(c.Path)
	if !v.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, "present", nil, "field %s missing", c.Path)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// Typed requires Path to resolve to a node of Kind.
type Typed struct {
	Path string
	Kind document.Kind
}

func (c Typed) Name() string { return "type" }

func (c Typed) Check(ctx *Context) []*Outcome {
	v := ctx.Body.Get(c.Path)
	if !v.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, c.Kind.String(), nil, "field %s missing", c.Path)}
	}
	if v.Kind() != c.Kind {
		return []*Outcome{fail(c.Name(), UnexpectedType, c.Path, c.Kind.String(), v.Kind().String(),
			"field %s is a %s, expected a %s", c.Path, v.Kind(), c.Kind)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// Equals requires Path to equal Value.
type Equals struct {
	Path  string
	Value any
}

func (c Equals) Name() string { return "equals" }

func (c Equals) Check(ctx *Context) []*Outcome {
	v := ctx.Body.Get(c.Path)
	if !v.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, c.Value, nil, "field %s missing", c.Path)}
	}
	if !v.EqualTo(c.Value) {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, c.Value, v.Interface(),
			"expected %v, got %s", c.Value, v)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// HasPrefix requires Path to be a string starting with Prefix.
type HasPrefix struct {
	Path   string
	Prefix string
}

func (c HasPrefix) Name() string { return "prefix" }

func (c HasPrefix) Check(ctx *Context) []*Outcome {
	v := ctx.Body.Get(c.Path)
	if !v.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, c.Prefix+"*", nil, "field %s missing", c.Path)}
	}
	if v.Kind() != document.String {
		return []*Outcome{fail(c.Name(), UnexpectedType, c.Path, document.String.String(), v.Kind().String(),
			"field %s is a %s, expected a string", c.Path, v.Kind())}
	}
	if !strings.HasPrefix(v.Str(), c.Prefix) {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, c.Prefix+"*", v.Str(),
			"expected %q to start with %q", v.Str(), c.Prefix)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// NotEmpty requires Path to be present and not an empty string, sequence
// or mapping.
type NotEmpty struct {
	Path string
}

func (c NotEmpty) Name() string { return "not_empty" }

func (c NotEmpty) Check(ctx *Context) []*Outcome {
	v := ctx.Body.Get(c.Path)
	if !v.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, "not empty", nil, "field %s missing", c.Path)}
	}
	if v.Empty() {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, "not empty", v.Interface(), "field %s is empty", c.Path)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// NestedOrTop requires Parent.Field when Parent is present, otherwise Field
// at the top level. Profiles embed the user object on some endpoints and
// flatten it on others.
type NestedOrTop struct {
	Parent string
	Field  string
}

func (c NestedOrTop) Name() string { return "nested_or_top" }

func (c NestedOrTop) Check(ctx *Context) []*Outcome {
	parent := ctx.Body.Get(c.Parent)
	path := c.Field
	if parent.Truthy() {
		path = c.Parent + "." + c.Field
	}
	return Present{Path: path}.Check(ctx)
}

// EchoesRequest requires the response field at Path to equal the request
// body's RequestField, when the request sent one.
type EchoesRequest struct {
	RequestField string
	Path         string
}

func (c EchoesRequest) Name() string { return "echo" }

func (c EchoesRequest) Check(ctx *Context) []*Outcome {
	body, ok, err := ctx.Request.RawJSON()
	if !ok {
		return []*Outcome{skip(c.Name(), c.Path, "no raw request body")}
	}
	if err != nil {
		ctx.Warn("malformed request body, skipping comparison",
			zap.String("check", c.Name()),
			zap.String("field", c.RequestField),
			zap.Error(err),
		)
		return []*Outcome{skip(c.Name(), c.Path, "malformed request body")}
	}

	want := body.Get(c.RequestField)
	if !want.Truthy() {
		return []*Outcome{skip(c.Name(), c.Path, fmt.Sprintf("request has no %s", c.RequestField))}
	}
	got := ctx.Body.Get(c.Path)
	if !got.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, want.Interface(), nil, "field %s missing", c.Path)}
	}
	if !document.Equal(got, want) {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, want.Interface(), got.Interface(),
			"expected %s from request, got %s", want, got)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// EqualsVariable requires Path to equal the integer held by the store value
// Variable. An unset variable, or one with no leading integer, never matches.
type EqualsVariable struct {
	Path     string
	Variable string
}

func (c EqualsVariable) Name() string { return "equals_variable" }

func (c EqualsVariable) Check(ctx *Context) []*Outcome {
	got := ctx.Body.Get(c.Path)
	placeholder := "{{" + c.Variable + "}}"
	if !got.Exists() {
		return []*Outcome{fail(c.Name(), MissingField, c.Path, placeholder, nil, "field %s missing", c.Path)}
	}
	var want string
	var ok bool
	if ctx.Store != nil {
		want, ok = ctx.Store.Get(c.Variable)
	}
	if !ok {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, placeholder, got.Interface(),
			"expected %s, variable %s not set", placeholder, c.Variable)}
	}
	if _, numeric := leadingInt(want); !numeric {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, placeholder, got.Interface(),
			"expected %s, variable %s=%q is not a number", placeholder, c.Variable, want)}
	}
	if !coercedEqual(got, want) {
		return []*Outcome{fail(c.Name(), ValueMismatch, c.Path, want, got.Interface(),
			"expected %s (from %s), got %s", want, c.Variable, got)}
	}
	return []*Outcome{pass(c.Name(), c.Path)}
}

// EachEquals requires the field at Field of every element of Sequence to
// equal Value. Every offending element is reported separately.
type EachEquals struct {
	Sequence string
	Field    string
	Value    any
}

func (c EachEquals) Name() string { return "each" }

func (c EachEquals) Check(ctx *Context) []*Outcome {
	items, bad := sequence(ctx, c.Name(), c.Sequence)
	if bad != nil {
		return bad
	}
	var out []*Outcome
	for i, item := range items {
		path := elementPath(c.Sequence, i, c.Field)
		v := item.Get(c.Field)
		switch {
		case !v.Exists():
			out = append(out, fail(c.Name(), MissingField, path, c.Value, nil, "field %s missing", path))
		case !v.EqualTo(c.Value):
			out = append(out, fail(c.Name(), ValueMismatch, path, c.Value, v.Interface(),
				"expected %v, got %s", c.Value, v))
		}
	}
	if len(out) == 0 {
		return []*Outcome{pass(c.Name(), c.Sequence)}
	}
	return out
}

// EachMatchesQuery requires the field at Field of every element of Sequence
// to equal the query parameter Param after numeric coercion. Requests
// without the parameter skip the check.
type EachMatchesQuery struct {
	Param    string
	Sequence string
	Field    string
}

func (c EachMatchesQuery) Name() string { return "query" }

func (c EachMatchesQuery) Check(ctx *Context) []*Outcome {
	want, ok := ctx.Request.QueryParam(c.Param)
	if !ok {
		return []*Outcome{skip(c.Name(), c.Sequence, fmt.Sprintf("no %s parameter", c.Param))}
	}
	items, bad := sequence(ctx, c.Name(), c.Sequence)
	if bad != nil {
		return bad
	}
	var out []*Outcome
	for i, item := range items {
		path := elementPath(c.Sequence, i, c.Field)
		v := item.Get(c.Field)
		switch {
		case !v.Exists():
			out = append(out, fail(c.Name(), MissingField, path, want, nil, "field %s missing", path))
		case !coercedEqual(v, want):
			out = append(out, fail(c.Name(), ValueMismatch, path, want, v.Interface(),
				"expected %s=%s, got %s", c.Param, want, v))
		}
	}
	if len(out) == 0 {
		return []*Outcome{pass(c.Name(), c.Sequence)}
	}
	return out
}

func sequence(ctx *Context, check, path string) ([]document.Value, []*Outcome) {
	v := ctx.Body.Get(path)
	if !v.Exists() {
		return nil, []*Outcome{fail(check, MissingField, path, document.Sequence.String(), nil, "field %s missing", path)}
	}
	if v.Kind() != document.Sequence {
		return nil, []*Outcome{fail(check, UnexpectedType, path, document.Sequence.String(), v.Kind().String(),
			"field %s is a %s, expected a sequence", path, v.Kind())}
	}
	return v.Elements(), nil
}

func elementPath(seq string, i int, field string) string {
	if field == "" {
		return fmt.Sprintf("%s[%d]", seq, i)
	}
	return fmt.Sprintf("%s[%d].%s", seq, i, field)
}

// coercedEqual compares a document value to a string taken from a query
// parameter or variable. When want has a leading integer (parseInt
// semantics) the comparison is numeric; otherwise the string forms are
// compared.
func coercedEqual(v document.Value, want string) bool {
	if n, ok := leadingInt(want); ok {
		got, ok := v.Float()
		return ok && got == float64(n)
	}
	return v.Stringify() == want
}

func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
