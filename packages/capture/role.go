package capture

import (
	"fmt"

	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
)

// Role is the account type reported by auth responses.
type Role int

const (
	UnknownRole Role = iota
	Customer
	Provider
)

// ParseRole matches the exact user_type tags. Anything else is UnknownRole.
func ParseRole(tag string) Role {
	switch tag {
	case "CUSTOMER":
		return Customer
	case "PROVIDER":
		return Provider
	}
	return UnknownRole
}

func (r Role) String() string {
	switch r {
	case Customer:
		return "customer"
	case Provider:
		return "provider"
	}
	return "unknown"
}

// Prefix is the variable-name namespace of the role.
func (r Role) Prefix() string {
	switch r {
	case Customer:
		return "customer_"
	case Provider:
		return "provider_"
	}
	return ""
}

// Roles lists the roles that own a variable namespace.
func Roles() []Role {
	return []Role{Customer, Provider}
}

// RoleField maps a response path to a variable suffix.
type RoleField struct {
	Suffix string
	Path   string
}

// RoleCapture writes Fields under the prefix of the role named by the
// Discriminator field.
type RoleCapture struct {
	Discriminator string
	Fields        []RoleField
}

// AuthTokens is the capture used by register and login responses.
func AuthTokens() *RoleCapture {
	return &RoleCapture{
		Discriminator: "user.user_type",
		Fields: []RoleField{
			{Suffix: "access_token", Path: "access"},
			{Suffix: "refresh_token", Path: "refresh"},
			{Suffix: "id", Path: "user.id"},
		},
	}
}

func (c *RoleCapture) Targets() []string {
	var out []string
	for _, r := range Roles() {
		for _, f := range c.Fields {
			out = append(out, r.Prefix()+f.Suffix)
		}
	}
	return out
}

func (c *RoleCapture) Extract(doc document.Value) (map[string]string, string) {
	tag := doc.Get(c.Discriminator)
	role := ParseRole(tag.Str())
	if tag.Kind() != document.String || role == UnknownRole {
		return nil, fmt.Sprintf("%s: unrecognized role %s", c.Discriminator, tag)
	}

	writes := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		if v, ok := Stringify(doc.Get(f.Path)); ok {
			writes[role.Prefix()+f.Suffix] = v
		}
	}
	return writes, ""
}
