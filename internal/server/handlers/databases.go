package handlers

import (
	"context"

	"github.com/maruel/pmboard/internal/storage/content"
	"github.com/maruel/pmboard/internal/storage/entity"
)

// DatabaseHandler handles database-related HTTP requests.
type DatabaseHandler struct {
	databases *content.DatabaseService
}

// NewDatabaseHandler creates a new database handler.
func NewDatabaseHandler(databases *content.DatabaseService) *DatabaseHandler {
	return &DatabaseHandler{databases: databases}
}

// ListDatabasesRequest is a request to list all databases.
type ListDatabasesRequest struct{}

// ListDatabasesResponse is a response containing a list of databases.
type ListDatabasesResponse struct {
	Databases []entity.Database `json:"databases"`
}

// GetDatabaseRequest is a request to get a database.
type GetDatabaseRequest struct {
	ID string `path:"id"`
}

// CreateDatabaseRequest is a request to create a database. IDs are generated
// for the database and for properties and options that lack one.
type CreateDatabaseRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Schema      []entity.PropertySchema `json:"schema"`
}

// UpsertDatabaseRequest creates or replaces the database with the ID in the
// path.
type UpsertDatabaseRequest struct {
	ID          string                  `json:"id,omitempty" path:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Schema      []entity.PropertySchema `json:"schema"`
}

// DeleteDatabaseRequest is a request to delete a database.
type DeleteDatabaseRequest struct {
	ID string `path:"id"`
}

// DeleteResponse is the response of delete operations.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ListDatabases returns every database.
func (h *DatabaseHandler) ListDatabases(ctx context.Context, _ ListDatabasesRequest) (*ListDatabasesResponse, error) {
	return &ListDatabasesResponse{Databases: h.databases.List(ctx)}, nil
}

// GetDatabase returns one database.
func (h *DatabaseHandler) GetDatabase(ctx context.Context, req GetDatabaseRequest) (*entity.Database, error) {
	return h.databases.Get(ctx, req.ID)
}

// CreateDatabase creates a database.
func (h *DatabaseHandler) CreateDatabase(ctx context.Context, req CreateDatabaseRequest) (*entity.Database, error) {
	return h.databases.Create(ctx, req.Name, req.Description, req.Schema)
}

// UpsertDatabase creates or replaces a database.
func (h *DatabaseHandler) UpsertDatabase(ctx context.Context, req UpsertDatabaseRequest) (*entity.Database, error) {
	return h.databases.Upsert(ctx, &entity.Database{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Schema:      req.Schema,
	})
}

// DeleteDatabase deletes a database. Its pages are kept on disk.
func (h *DatabaseHandler) DeleteDatabase(ctx context.Context, req DeleteDatabaseRequest) (*DeleteResponse, error) {
	if err := h.databases.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteResponse{Deleted: true}, nil
}
