package capture

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
)

// Capturer produces variable writes from a response document. When it
// writes nothing, skip says why.
type Capturer interface {
	Extract(doc document.Value) (writes map[string]string, skip string)
	// Targets lists the variable names the capturer may write.
	Targets() []string
}

// Condition gates a capture on the response document.
type Condition struct {
	Name  string
	holds func(doc, source document.Value) bool
}

func (c Condition) Holds(doc, source document.Value) bool {
	if c.holds == nil {
		return WhenPresent().holds(doc, source)
	}
	return c.holds(doc, source)
}

// WhenPresent holds when the source field is present and not null.
func WhenPresent() Condition {
	return Condition{
		Name: "present",
		holds: func(_, source document.Value) bool {
			return source.Exists() && !source.IsNull()
		},
	}
}

// WhenNonEmpty holds when the sequence at path has at least one element.
func WhenNonEmpty(path string) Condition {
	return Condition{
		Name: "non_empty:" + path,
		holds: func(doc, _ document.Value) bool {
			seq := doc.Get(path)
			return seq.Kind() == document.Sequence && seq.Len() > 0
		},
	}
}

// WhenTruthy holds when the value at path is truthy.
func WhenTruthy(path string) Condition {
	return Condition{
		Name: "truthy:" + path,
		holds: func(doc, _ document.Value) bool {
			return doc.Get(path).Truthy()
		},
	}
}

// WhenEquals holds when the value at path equals value.
func WhenEquals(path string, value any) Condition {
	return Condition{
		Name: fmt.Sprintf("equals:%s=%v", path, value),
		holds: func(doc, _ document.Value) bool {
			return doc.Get(path).EqualTo(value)
		},
	}
}

// Transform renders a source value as a variable value.
type Transform func(document.Value) (string, bool)

// Stringify stores scalars verbatim, integers without a fractional part and
// containers as raw JSON.
func Stringify(v document.Value) (string, bool) {
	if !v.Exists() || v.IsNull() {
		return "", false
	}
	return v.Stringify(), true
}

// Lower lower-cases the stringified value.
func Lower(v document.Value) (string, bool) {
	s, ok := Stringify(v)
	return strings.ToLower(s), ok
}

// Upper upper-cases the stringified value.
func Upper(v document.Value) (string, bool) {
	s, ok := Stringify(v)
	return strings.ToUpper(s), ok
}

// WithPrefix prepends prefix, e.g. "Bearer " for a ready-made
// Authorization header value.
func WithPrefix(prefix string) Transform {
	return func(v document.Value) (string, bool) {
		s, ok := Stringify(v)
		if !ok {
			return "", false
		}
		return prefix + s, true
	}
}

// ParseTransform maps a transform name (stringify, lower, upper,
// prefix:<text>) to a Transform.
func ParseTransform(name string) (Transform, error) {
	switch {
	case name == "" || name == "stringify":
		return Stringify, nil
	case name == "lower":
		return Lower, nil
	case name == "upper":
		return Upper, nil
	case strings.HasPrefix(name, "prefix:"):
		return WithPrefix(strings.TrimPrefix(name, "prefix:")), nil
	}
	return nil, fmt.Errorf("unknown transform %q", name)
}

// ParseCondition maps a condition name (present, non_empty:<path>,
// truthy:<path>, equals:<path>=<value>) to a Condition. An equals value that
// parses as JSON is compared as that JSON; anything else is a plain string.
func ParseCondition(name string) (Condition, error) {
	switch {
	case name == "" || name == "present":
		return WhenPresent(), nil
	case strings.HasPrefix(name, "non_empty:"):
		return WhenNonEmpty(strings.TrimPrefix(name, "non_empty:")), nil
	case strings.HasPrefix(name, "truthy:"):
		return WhenTruthy(strings.TrimPrefix(name, "truthy:")), nil
	case strings.HasPrefix(name, "equals:"):
		path, raw, ok := strings.Cut(strings.TrimPrefix(name, "equals:"), "=")
		if !ok || path == "" {
			return Condition{}, fmt.Errorf("capture condition %q: want equals:<path>=<value>", name)
		}
		var value any = raw
		if doc, err := document.ParseString(raw); err == nil {
			value = doc.Interface()
		}
		return WhenEquals(path, value), nil
	}
	return Condition{}, fmt.Errorf("unknown capture condition %q", name)
}

// Capture copies the value at Path into the variable Name.
type Capture struct {
	Name      string
	Path      string
	When      Condition
	Transform Transform
}

func (c *Capture) Targets() []string {
	return []string{c.Name}
}

func (c *Capture) Extract(doc document.Value) (map[string]string, string) {
	source := doc.Get(c.Path)
	if !c.When.Holds(doc, source) {
		name := c.When.Name
		if name == "" {
			name = "present"
		}
		return nil, fmt.Sprintf("%s: condition %s not met", c.Name, name)
	}
	if !source.Exists() || source.IsNull() {
		return nil, fmt.Sprintf("%s: source %s missing", c.Name, c.Path)
	}
	transform := c.Transform
	if transform == nil {
		transform = Stringify
	}
	value, ok := transform(source)
	if !ok {
		return nil, fmt.Sprintf("%s: source %s not capturable", c.Name, c.Path)
	}
	return map[string]string{c.Name: value}, ""
}

// Field builds a Capture with the default condition and transform.
func Field(name, path string) *Capture {
	return &Capture{Name: name, Path: path, When: WhenPresent(), Transform: Stringify}
}

// ExtractAll runs every capturer against doc and merges their writes in
// order; later capturers win on the same name.
func ExtractAll(doc document.Value, capturers []Capturer) (map[string]string, []string) {
	results := make(map[string]string)
	var skipped []string
	for _, c := range capturers {
		writes, skip := c.Extract(doc)
		if skip != "" {
			skipped = append(skipped, skip)
		}
		for k, v := range writes {
			results[k] = v
		}
	}
	return results, skipped
}
