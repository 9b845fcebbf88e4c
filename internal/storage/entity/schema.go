package entity

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema returns the JSON Schema document describing the persisted shape
// of an entity kind: "database" or "page".
func JSONSchema(kind string) (json.RawMessage, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	var s *jsonschema.Schema
	switch kind {
	case "database":
		s = r.Reflect(&Database{})
	case "page":
		s = r.Reflect(&Page{})
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
