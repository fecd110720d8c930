package env

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// ExportPostman renders the store as a Postman environment document so a
// captured run can be loaded back into the Postman app.
func (s *Store) ExportPostman(name string) ([]byte, error) {
	doc := `{}`
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}

	set("id", s.RunID())
	set("name", name)
	set("values", []any{})
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		set("values.-1", map[string]any{
			"key":     k,
			"value":   v,
			"type":    "default",
			"enabled": true,
		})
	}
	set("_postman_variable_scope", "environment")
	if err != nil {
		return nil, fmt.Errorf("rendering postman environment: %w", err)
	}
	return []byte(doc), nil
}
