package document

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the shape of a resolved node.
type Kind int

const (
	// Missing means the path did not resolve. It is not the same as Null.
	Missing Kind = iota
	Null
	Bool
	Number
	String
	Sequence
	Mapping
)

var kindNames = map[Kind]string{
	Missing:  "missing",
	Null:     "null",
	Bool:     "bool",
	Number:   "number",
	String:   "string",
	Sequence: "sequence",
	Mapping:  "mapping",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a kind name to a Kind. The JSON spellings "array",
// "object" and "boolean" are accepted as aliases.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "null":
		return Null, true
	case "bool", "boolean":
		return Bool, true
	case "number":
		return Number, true
	case "string":
		return String, true
	case "sequence", "array", "list":
		return Sequence, true
	case "mapping", "object", "map":
		return Mapping, true
	}
	return Missing, false
}

// ErrInvalidJSON is returned by Parse when the input is not a JSON document.
var ErrInvalidJSON = errors.New("invalid JSON document")

// Value is one node of a parsed JSON document.
type Value struct {
	res gjson.Result
}

// Parse parses data as a JSON document.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return Value{res: gjson.ParseBytes(data)}, nil
}

// ParseString is Parse for strings.
func ParseString(s string) (Value, error) {
	if !gjson.Valid(s) {
		return Value{}, ErrInvalidJSON
	}
	return Value{res: gjson.Parse(s)}, nil
}

// FromGo converts an arbitrary Go value into a document by round-tripping it
// through encoding/json.
func FromGo(v any) (Value, error) {
	if doc, ok := v.(Value); ok {
		return doc, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return Parse(data)
}

// Nothing returns the empty document. Every path on it resolves as Missing.
func Nothing() Value {
	return Value{}
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// NormalizePath converts bracket indexes to gjson dot notation,
// e.g. "results[0].id" -> "results.0.id".
func NormalizePath(path string) string {
	path = bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}

// Get resolves a dotted path relative to v. An empty path returns v itself.
func (v Value) Get(path string) Value {
	if path == "" {
		return v
	}
	if !v.res.Exists() {
		return Value{}
	}
	return Value{res: v.res.Get(NormalizePath(path))}
}

func (v Value) Kind() Kind {
	if !v.res.Exists() {
		return Missing
	}
	switch v.res.Type {
	case gjson.Null:
		return Null
	case gjson.True, gjson.False:
		return Bool
	case gjson.Number:
		return Number
	case gjson.String:
		return String
	case gjson.JSON:
		if v.res.IsArray() {
			return Sequence
		}
		return Mapping
	}
	return Missing
}

func (v Value) Exists() bool { return v.Kind() != Missing }

func (v Value) IsNull() bool { return v.Kind() == Null }

// Elements returns the items of a sequence, or nil for any other kind.
func (v Value) Elements() []Value {
	if v.Kind() != Sequence {
		return nil
	}
	items := v.res.Array()
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = Value{res: item}
	}
	return out
}

// Len is the element count of a sequence, key count of a mapping or byte
// length of a string. It is -1 for other kinds.
func (v Value) Len() int {
	switch v.Kind() {
	case Sequence:
		return len(v.res.Array())
	case Mapping:
		return len(v.res.Map())
	case String:
		return len(v.res.Str)
	}
	return -1
}

func (v Value) Str() string { return v.res.String() }

// Float returns the numeric value of a number, or of a string holding a
// number.
func (v Value) Float() (float64, bool) {
	switch v.Kind() {
	case Number:
		return v.res.Num, true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.res.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Interface returns the node as plain Go values (float64, string, bool,
// []any, map[string]any or nil).
func (v Value) Interface() any {
	if !v.res.Exists() {
		return nil
	}
	return v.res.Value()
}

func (v Value) Raw() string { return v.res.Raw }

// Truthy follows JavaScript truthiness: false, 0, "", null and missing are
// falsy, every sequence and mapping is truthy.
func (v Value) Truthy() bool {
	switch v.Kind() {
	case Bool:
		return v.res.Bool()
	case Number:
		return v.res.Num != 0
	case String:
		return v.res.Str != ""
	case Sequence, Mapping:
		return true
	}
	return false
}

// Empty reports whether v is an empty string, sequence or mapping. Missing
// and null count as empty too.
func (v Value) Empty() bool {
	switch v.Kind() {
	case Missing, Null:
		return true
	case String, Sequence, Mapping:
		return v.Len() == 0
	}
	return false
}

// Stringify renders a scalar the way it would be stored in a variable:
// strings verbatim, integers without a fractional part, containers as raw
// JSON. Missing and null render as "".
func (v Value) Stringify() string {
	switch v.Kind() {
	case Missing, Null:
		return ""
	case String:
		return v.res.Str
	case Bool:
		return strconv.FormatBool(v.res.Bool())
	case Number:
		raw := strings.TrimSpace(v.res.Raw)
		if raw != "" && !strings.ContainsAny(raw, ".eE") {
			return raw
		}
		return strconv.FormatFloat(v.res.Num, 'f', -1, 64)
	}
	return v.res.Raw
}

func (v Value) String() string {
	if !v.Exists() {
		return "<missing>"
	}
	return v.res.Raw
}

// Equal deep-compares two nodes. Numbers compare by value and mapping key
// order is irrelevant.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == Missing {
		return true
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

// EqualTo compares v against a Go value.
func (v Value) EqualTo(want any) bool {
	doc, err := FromGo(want)
	if err != nil {
		return false
	}
	return Equal(v, doc)
}
