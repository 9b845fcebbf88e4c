package entity

// PropertyType represents the type of a database property.
type PropertyType string

const (
	// Primitive types

	// PropertyTypeText stores plain text values.
	PropertyTypeText PropertyType = "text"
	// PropertyTypeNumber stores numeric values (integer or float).
	PropertyTypeNumber PropertyType = "number"
	// PropertyTypeCheckbox stores boolean values.
	PropertyTypeCheckbox PropertyType = "checkbox"
	// PropertyTypeDate stores ISO8601 date strings.
	PropertyTypeDate PropertyType = "date"
	// PropertyTypePerson stores the name of the assignee as text.
	PropertyTypePerson PropertyType = "person"

	// Enumerated types (with predefined options)

	// PropertyTypeSelect stores a single selection from predefined options.
	PropertyTypeSelect PropertyType = "select"
	// PropertyTypeStatus is a select rendered as kanban columns.
	PropertyTypeStatus PropertyType = "status"
	// PropertyTypeMultiSelect stores multiple selections from predefined options.
	PropertyTypeMultiSelect PropertyType = "multi-select"
)

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeText, PropertyTypeNumber, PropertyTypeCheckbox, PropertyTypeDate, PropertyTypePerson,
		PropertyTypeSelect, PropertyTypeStatus, PropertyTypeMultiSelect:
		return true
	default:
		return false
	}
}

// HasOptions reports whether values of this type reference predefined options.
func (t PropertyType) HasOptions() bool {
	return t == PropertyTypeSelect || t == PropertyTypeStatus || t == PropertyTypeMultiSelect
}

// SelectOption represents an option for select, status and multi-select properties.
type SelectOption struct {
	ID    string `json:"id" jsonschema:"description=Unique option identifier"`
	Name  string `json:"name" jsonschema:"description=Display name of the option"`
	Color string `json:"color,omitempty" jsonschema:"description=Color for visual distinction"`
}

// PropertySchema represents a database property (column) with its configuration.
type PropertySchema struct {
	ID   string       `json:"id" jsonschema:"description=Property identifier, unique within its database"`
	Name string       `json:"name" jsonschema:"description=Property name (column header)"`
	Type PropertyType `json:"type" jsonschema:"description=Property type (text/number/select/etc)"`

	// Options contains the allowed values for enumerated properties.
	// Each option has an ID (used in storage), name (display), and optional color.
	Options []SelectOption `json:"options,omitempty" jsonschema:"description=Allowed values for select properties"`
}

// Option returns the option with the given ID.
func (p *PropertySchema) Option(id string) (SelectOption, bool) {
	for _, o := range p.Options {
		if o.ID == id {
			return o, true
		}
	}
	return SelectOption{}, false
}

// OptionByName returns the first option with the given display name.
func (p *PropertySchema) OptionByName(name string) (SelectOption, bool) {
	for _, o := range p.Options {
		if o.Name == name {
			return o, true
		}
	}
	return SelectOption{}, false
}
