package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
)

// Catalog indexes rules by id.
type Catalog struct {
	rules map[string]*assertions.Rule
}

func NewCatalog() *Catalog {
	return &Catalog{rules: make(map[string]*assertions.Rule)}
}

// Register adds or replaces a rule. The group defaults to the id prefix
// before the first dot.
func (c *Catalog) Register(rule *assertions.Rule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule without id")
	}
	if rule.Group == "" {
		rule.Group, _, _ = strings.Cut(rule.ID, ".")
	}
	if rule.Name == "" {
		rule.Name = rule.ID
	}
	c.rules[rule.ID] = rule
	return nil
}

func (c *Catalog) mustRegister(rule *assertions.Rule) {
	if err := c.Register(rule); err != nil {
		panic(err)
	}
}

func (c *Catalog) Lookup(id string) (*assertions.Rule, bool) {
	r, ok := c.rules[id]
	return r, ok
}

func (c *Catalog) Len() int {
	return len(c.rules)
}

// IDs returns every rule id in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.rules))
	for id := range c.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Groups returns the distinct rule groups in sorted order.
func (c *Catalog) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, r := range c.rules {
		if !seen[r.Group] {
			seen[r.Group] = true
			groups = append(groups, r.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// InGroup returns the rules of group ordered by id.
func (c *Catalog) InGroup(group string) []*assertions.Rule {
	var out []*assertions.Rule
	for _, id := range c.IDs() {
		if r := c.rules[id]; r.Group == group {
			out = append(out, r)
		}
	}
	return out
}

// Merge returns a new catalog holding c's rules overridden by other's.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := NewCatalog()
	for id, r := range c.rules {
		merged.rules[id] = r
	}
	if other != nil {
		for id, r := range other.rules {
			merged.rules[id] = r
		}
	}
	return merged
}
