// Typed view over the untyped property values stored on a page.

package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// dateOnly is the layout accepted for date properties without a time part.
const dateOnly = "2006-01-02"

// Value is a property value tagged with the type of the property it belongs
// to. Only the field matching Kind is meaningful.
type Value struct {
	Kind PropertyType

	// Null is true when the value clears the property.
	Null bool

	Text    string   // text, person, date
	Number  float64  // number
	Bool    bool     // checkbox
	Option  string   // select, status
	Options []string // multi-select

	// literal is the number as written, so that integers beyond float64
	// precision survive.
	literal json.Number
}

// Raw returns the JSON shape persisted for this value. Numbers are returned
// as json.Number, the type ReadJSON decodes them to.
func (v Value) Raw() any {
	if v.Null {
		return nil
	}
	switch v.Kind {
	case PropertyTypeNumber:
		if v.literal != "" {
			return v.literal
		}
		return formatNumber(v.Number)
	case PropertyTypeCheckbox:
		return v.Bool
	case PropertyTypeSelect, PropertyTypeStatus:
		return v.Option
	case PropertyTypeMultiSelect:
		out := make([]any, len(v.Options))
		for i, o := range v.Options {
			out[i] = o
		}
		return out
	default:
		return v.Text
	}
}

// ParseValue converts raw, as decoded by encoding/json, into a Value for
// prop. It fails on a type mismatch or a reference to an unknown option.
// nil is accepted for every type and yields a Null value.
func ParseValue(prop *PropertySchema, raw any) (Value, error) {
	v := Value{Kind: prop.Type}
	if raw == nil {
		v.Null = true
		return v, nil
	}
	switch prop.Type {
	case PropertyTypeText, PropertyTypePerson:
		s, ok := raw.(string)
		if !ok {
			return v, mismatch(prop, "a string", raw)
		}
		v.Text = s
	case PropertyTypeNumber:
		f, lit, ok := toNumber(raw)
		if !ok {
			return v, mismatch(prop, "a number", raw)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return v, fmt.Errorf("property %q: number must be finite", prop.ID)
		}
		v.Number = f
		v.literal = lit
	case PropertyTypeCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return v, mismatch(prop, "a boolean", raw)
		}
		v.Bool = b
	case PropertyTypeDate:
		s, ok := raw.(string)
		if !ok {
			return v, mismatch(prop, "a date string", raw)
		}
		if !isDate(s) {
			return v, fmt.Errorf("property %q: %q is not an RFC 3339 timestamp or YYYY-MM-DD date", prop.ID, s)
		}
		v.Text = s
	case PropertyTypeSelect, PropertyTypeStatus:
		s, ok := raw.(string)
		if !ok {
			return v, mismatch(prop, "an option id", raw)
		}
		if _, ok := prop.Option(s); !ok {
			return v, fmt.Errorf("property %q: unknown option %q", prop.ID, s)
		}
		v.Option = s
	case PropertyTypeMultiSelect:
		ids, ok := toStrings(raw)
		if !ok {
			return v, mismatch(prop, "an array of option ids", raw)
		}
		for _, id := range ids {
			if _, ok := prop.Option(id); !ok {
				return v, fmt.Errorf("property %q: unknown option %q", prop.ID, id)
			}
		}
		v.Options = ids
	default:
		return v, fmt.Errorf("property %q: unknown type %q", prop.ID, prop.Type)
	}
	return v, nil
}

func mismatch(prop *PropertySchema, want string, got any) error {
	return fmt.Errorf("property %q of type %s: want %s, got %T", prop.ID, prop.Type, want, got)
}

// toNumber accepts the numeric types produced by encoding/json and YAML
// decoders and returns the value with its JSON literal.
func toNumber(raw any) (float64, json.Number, bool) {
	switch n := raw.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return n, "", true
		}
		return n, formatNumber(n), true
	case int:
		return float64(n), json.Number(strconv.Itoa(n)), true
	case int64:
		return float64(n), json.Number(strconv.FormatInt(n, 10)), true
	case uint64:
		return float64(n), json.Number(strconv.FormatUint(n, 10)), true
	case json.Number:
		if !json.Valid([]byte(n)) {
			return 0, "", false
		}
		f, err := n.Float64()
		return f, n, err == nil
	default:
		return 0, "", false
	}
}

// formatNumber renders f the way encoding/json does.
func formatNumber(f float64) json.Number {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return json.Number(strconv.FormatFloat(f, format, -1, 64))
}

func toStrings(raw any) ([]string, bool) {
	switch t := raw.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func isDate(s string) bool {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse(dateOnly, s)
	return err == nil
}
