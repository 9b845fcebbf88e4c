package handlers

import (
	"context"
	"encoding/json"

	"github.com/maruel/pmboard/internal/errors"
	"github.com/maruel/pmboard/internal/storage/entity"
)

// SchemaRequest names the entity kind to describe.
type SchemaRequest struct {
	Kind string `path:"kind"`
}

// Schema returns the JSON Schema of a stored entity kind.
func Schema(_ context.Context, req SchemaRequest) (*json.RawMessage, error) {
	s, err := entity.JSONSchema(req.Kind)
	if err != nil {
		return nil, errors.NotFound("schema " + req.Kind)
	}
	return &s, nil
}
