// Package entity defines the records persisted by the store: databases
// (schemas) and the pages (records) that belong to them.
package entity

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	errIDRequired         = errors.New("id is required")
	errNameRequired       = errors.New("name is required")
	errDatabaseIDRequired = errors.New("databaseId is required")
)

// Database is a named collection of pages sharing one schema.
type Database struct {
	ID          string           `json:"id" jsonschema:"description=Unique database identifier"`
	Name        string           `json:"name" jsonschema:"description=Display name"`
	Description string           `json:"description,omitempty" jsonschema:"description=Optional free text description"`
	Schema      []PropertySchema `json:"schema" jsonschema:"description=Ordered property definitions"`
}

// Clone returns a deep copy of the database.
func (d *Database) Clone() *Database {
	c := *d
	if d.Schema != nil {
		c.Schema = make([]PropertySchema, len(d.Schema))
		for i, p := range d.Schema {
			p.Options = slices.Clone(p.Options)
			c.Schema[i] = p
		}
	}
	return &c
}

// Property returns the property with the given ID.
func (d *Database) Property(id string) (*PropertySchema, bool) {
	for i := range d.Schema {
		if d.Schema[i].ID == id {
			return &d.Schema[i], true
		}
	}
	return nil, false
}

// PropertyByName returns the first property with the given name.
func (d *Database) PropertyByName(name string) (*PropertySchema, bool) {
	for i := range d.Schema {
		if d.Schema[i].Name == name {
			return &d.Schema[i], true
		}
	}
	return nil, false
}

// Validate checks that the database is well-formed.
func (d *Database) Validate() error {
	if err := ValidateFileID(d.ID); err != nil {
		return err
	}
	if strings.TrimSpace(d.Name) == "" {
		return errNameRequired
	}
	seen := make(map[string]struct{}, len(d.Schema))
	for i := range d.Schema {
		p := &d.Schema[i]
		if p.ID == "" {
			return fmt.Errorf("property %d: %w", i, errIDRequired)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("property %q: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if !p.Type.Valid() {
			return fmt.Errorf("property %q: unknown type %q", p.ID, p.Type)
		}
		if len(p.Options) != 0 && !p.Type.HasOptions() {
			return fmt.Errorf("property %q: type %q does not take options", p.ID, p.Type)
		}
		opts := make(map[string]struct{}, len(p.Options))
		for _, o := range p.Options {
			if o.ID == "" {
				return fmt.Errorf("property %q: option %w", p.ID, errIDRequired)
			}
			if _, ok := opts[o.ID]; ok {
				return fmt.Errorf("property %q: duplicate option id %q", p.ID, o.ID)
			}
			opts[o.ID] = struct{}{}
		}
	}
	return nil
}

// Page is a single record belonging to exactly one database.
//
// Properties maps a PropertySchema ID to a JSON value whose shape depends on
// the property type. The store keeps them untyped; see ParseValue for the
// typed view.
type Page struct {
	ID         string         `json:"id" jsonschema:"description=Globally unique page identifier"`
	DatabaseID string         `json:"databaseId" jsonschema:"description=Owning database identifier"`
	Title      string         `json:"title" jsonschema:"description=Page title"`
	Properties map[string]any `json:"properties" jsonschema:"description=Values keyed by property id"`
	Content    string         `json:"content,omitempty" jsonschema:"description=Markdown body"`
	CreatedAt  string         `json:"createdAt" jsonschema:"description=Creation time (ISO8601 UTC)"`
	UpdatedAt  string         `json:"updatedAt" jsonschema:"description=Last modification time (ISO8601 UTC)"`
}

// Clone returns a deep copy of the page, including nested property values.
func (p *Page) Clone() *Page {
	c := *p
	if p.Properties != nil {
		c.Properties = make(map[string]any, len(p.Properties))
		for k, v := range p.Properties {
			c.Properties[k] = cloneJSON(v)
		}
	}
	return &c
}

// Validate checks that the page can be persisted.
func (p *Page) Validate() error {
	if p.ID == "" {
		return errIDRequired
	}
	if p.DatabaseID == "" {
		return errDatabaseIDRequired
	}
	return ValidateFileID(p.DatabaseID)
}

// ValidateFileID checks that id can be used as a file name inside the data
// directory.
func ValidateFileID(id string) error {
	switch {
	case id == "":
		return errIDRequired
	case id == "." || id == "..":
		return fmt.Errorf("invalid id %q", id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("invalid id %q: contains a path separator", id)
	}
	return nil
}

// cloneJSON deep copies a value produced by encoding/json.
func cloneJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := maps.Clone(t)
		for k, e := range m {
			m[k] = cloneJSON(e)
		}
		return m
	case []any:
		s := slices.Clone(t)
		for i, e := range s {
			s[i] = cloneJSON(e)
		}
		return s
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
