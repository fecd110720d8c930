package assertions

import (
	"github.com/xeipuuv/gojsonschema"
)

// MatchesSchema validates the whole response body against a JSON schema.
// Each violation is a separate SchemaMismatch.
type MatchesSchema struct {
	Schema string
}

func (c MatchesSchema) Name() string { return "schema" }

func (c MatchesSchema) Check(ctx *Context) []*Outcome {
	raw := ctx.Body.Raw()
	if raw == "" {
		raw = "null"
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(c.Schema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return []*Outcome{fail(c.Name(), SchemaMismatch, "", "valid schema", nil, "schema validation error: %v", err)}
	}
	if result.Valid() {
		return []*Outcome{pass(c.Name(), "")}
	}

	out := make([]*Outcome, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		path := desc.Field()
		if path == "(root)" {
			path = ""
		}
		out = append(out, fail(c.Name(), SchemaMismatch, path, desc.Type(), desc.Value(), "%s", desc.Description()))
	}
	return out
}
