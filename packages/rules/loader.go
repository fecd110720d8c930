package rules

import (
	"fmt"
	"os"
	"sort"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/abdul-hamid-achik/prbalcheck/packages/capture"
	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Group          string            `yaml:"group"`
	Status         codes             `yaml:"status"`
	Soft           bool              `yaml:"soft"`
	Guard          *guardSpec        `yaml:"guard"`
	NotImplemented string            `yaml:"not_implemented"`
	Require        []string          `yaml:"require"`
	Types          map[string]string `yaml:"types"`
	Equals         map[string]any    `yaml:"equals"`
	Prefix         map[string]string `yaml:"prefix"`
	NotEmpty       []string          `yaml:"not_empty"`
	Echo           map[string]string `yaml:"echo"`
	EqualsVariable map[string]string `yaml:"equals_variable"`
	Each           []eachSpec        `yaml:"each"`
	Query          []querySpec       `yaml:"query"`
	Schema         string            `yaml:"schema"`
	Capture        []captureSpec     `yaml:"capture"`
	RoleCapture    *roleCaptureSpec  `yaml:"role_capture"`
}

type guardSpec struct {
	WithoutHeader string `yaml:"without_header"`
	WithHeader    string `yaml:"with_header"`
}

type eachSpec struct {
	Sequence string `yaml:"sequence"`
	Field    string `yaml:"field"`
	Value    any    `yaml:"value"`
}

type querySpec struct {
	Param    string `yaml:"param"`
	Sequence string `yaml:"sequence"`
	Field    string `yaml:"field"`
}

type captureSpec struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	When      string `yaml:"when"`
	Transform string `yaml:"transform"`
}

type roleCaptureSpec struct {
	Discriminator string            `yaml:"discriminator"`
	Fields        map[string]string `yaml:"fields"`
}

// codes accepts either a single status code or a list.
type codes []int

func (c *codes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var code int
		if err := node.Decode(&code); err != nil {
			return err
		}
		*c = codes{code}
		return nil
	}
	var list []int
	if err := node.Decode(&list); err != nil {
		return err
	}
	*c = list
	return nil
}

// LoadFile reads a YAML rule file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse builds a catalog from YAML rule declarations.
func Parse(data []byte) (*Catalog, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	catalog := NewCatalog()
	for i, spec := range file.Rules {
		if spec.ID == "" {
			return nil, fmt.Errorf("rule %d: missing id", i+1)
		}
		if _, dup := catalog.Lookup(spec.ID); dup {
			return nil, fmt.Errorf("rule %s: duplicate id", spec.ID)
		}
		rule, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.ID, err)
		}
		if err := catalog.Register(rule); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (s ruleSpec) build() (*assertions.Rule, error) {
	rule := &assertions.Rule{
		ID:             s.ID,
		Name:           s.Name,
		Group:          s.Group,
		Status:         assertions.Status{Codes: s.Status, Soft: s.Soft},
		NotImplemented: s.NotImplemented,
	}

	if s.Guard != nil {
		switch {
		case s.Guard.WithoutHeader != "" && s.Guard.WithHeader != "":
			return nil, fmt.Errorf("guard: without_header and with_header are exclusive")
		case s.Guard.WithoutHeader != "":
			rule.Guard = assertions.WithoutHeader(s.Guard.WithoutHeader)
		case s.Guard.WithHeader != "":
			rule.Guard = assertions.WithHeader(s.Guard.WithHeader)
		}
	}

	for _, path := range s.Require {
		rule.Checks = append(rule.Checks, assertions.Present{Path: path})
	}
	for _, path := range sortedKeys(s.Types) {
		kind, ok := document.ParseKind(s.Types[path])
		if !ok {
			return nil, fmt.Errorf("types: unknown kind %q for %s", s.Types[path], path)
		}
		rule.Checks = append(rule.Checks, assertions.Typed{Path: path, Kind: kind})
	}
	for _, path := range sortedKeys(s.Equals) {
		rule.Checks = append(rule.Checks, assertions.Equals{Path: path, Value: s.Equals[path]})
	}
	for _, path := range sortedKeys(s.Prefix) {
		rule.Checks = append(rule.Checks, assertions.HasPrefix{Path: path, Prefix: s.Prefix[path]})
	}
	for _, path := range s.NotEmpty {
		rule.Checks = append(rule.Checks, assertions.NotEmpty{Path: path})
	}
	for _, field := range sortedKeys(s.Echo) {
		rule.Checks = append(rule.Checks, assertions.EchoesRequest{RequestField: field, Path: s.Echo[field]})
	}
	for _, path := range sortedKeys(s.EqualsVariable) {
		rule.Checks = append(rule.Checks, assertions.EqualsVariable{Path: path, Variable: s.EqualsVariable[path]})
	}
	for _, e := range s.Each {
		if e.Sequence == "" || e.Field == "" {
			return nil, fmt.Errorf("each: sequence and field are required")
		}
		rule.Checks = append(rule.Checks, assertions.EachEquals{Sequence: e.Sequence, Field: e.Field, Value: e.Value})
	}
	for _, q := range s.Query {
		if q.Param == "" || q.Sequence == "" || q.Field == "" {
			return nil, fmt.Errorf("query: param, sequence and field are required")
		}
		rule.Checks = append(rule.Checks, assertions.EachMatchesQuery{Param: q.Param, Sequence: q.Sequence, Field: q.Field})
	}
	if s.Schema != "" {
		if _, err := document.ParseString(s.Schema); err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		rule.Checks = append(rule.Checks, assertions.MatchesSchema{Schema: s.Schema})
	}

	for _, c := range s.Capture {
		if c.Name == "" || c.Path == "" {
			return nil, fmt.Errorf("capture: name and path are required")
		}
		when, err := capture.ParseCondition(c.When)
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", c.Name, err)
		}
		transform, err := capture.ParseTransform(c.Transform)
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", c.Name, err)
		}
		rule.Captures = append(rule.Captures, &capture.Capture{
			Name:      c.Name,
			Path:      c.Path,
			When:      when,
			Transform: transform,
		})
	}
	if rc := s.RoleCapture; rc != nil {
		if rc.Discriminator == "" || len(rc.Fields) == 0 {
			return nil, fmt.Errorf("role_capture: discriminator and fields are required")
		}
		roleCapture := &capture.RoleCapture{Discriminator: rc.Discriminator}
		for _, suffix := range sortedKeys(rc.Fields) {
			roleCapture.Fields = append(roleCapture.Fields, capture.RoleField{Suffix: suffix, Path: rc.Fields[suffix]})
		}
		rule.Captures = append(rule.Captures, roleCapture)
	}

	return rule, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
