// Package content implements the business logic on top of the file store:
// identifier and timestamp generation, and validation of databases and page
// property values. Errors returned are API errors from internal/errors.
package content

import (
	"context"
	"strings"

	"github.com/maruel/ksid"
	apierrors "github.com/maruel/pmboard/internal/errors"
	"github.com/maruel/pmboard/internal/storage"
	"github.com/maruel/pmboard/internal/storage/entity"
)

// DatabaseService handles database business logic.
type DatabaseService struct {
	fs *storage.FileStore
}

// NewDatabaseService creates a new database service.
func NewDatabaseService(fs *storage.FileStore) *DatabaseService {
	return &DatabaseService{fs: fs}
}

// List returns every database.
func (s *DatabaseService) List(_ context.Context) []entity.Database {
	return s.fs.ListDatabases()
}

// Get returns a database by ID.
func (s *DatabaseService) Get(_ context.Context, id string) (*entity.Database, error) {
	db, ok := s.fs.GetDatabase(id)
	if !ok {
		return nil, apierrors.DatabaseNotFound(id)
	}
	return db, nil
}

// Create creates a database with a generated ID. Properties and options
// without an ID get one too.
func (s *DatabaseService) Create(ctx context.Context, name, description string, schema []entity.PropertySchema) (*entity.Database, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierrors.MissingField("name")
	}
	db := (&entity.Database{
		ID:          ksid.NewID().String(),
		Name:        name,
		Description: description,
		Schema:      schema,
	}).Clone()
	if db.Schema == nil {
		db.Schema = []entity.PropertySchema{}
	}
	assignIDs(db)
	return s.Upsert(ctx, db)
}

// Upsert creates or replaces a database. Property values of existing pages
// are not migrated when the schema changes.
func (s *DatabaseService) Upsert(ctx context.Context, db *entity.Database) (*entity.Database, error) {
	if err := db.Validate(); err != nil {
		return nil, apierrors.Validation("invalid database", err)
	}
	if db.Schema == nil {
		db = db.Clone()
		db.Schema = []entity.PropertySchema{}
	}
	if err := s.fs.UpsertDatabase(ctx, db); err != nil {
		return nil, apierrors.Storage(err)
	}
	return db.Clone(), nil
}

// Delete removes a database. Its pages stay on disk.
func (s *DatabaseService) Delete(ctx context.Context, id string) error {
	found, err := s.fs.DeleteDatabase(ctx, id)
	if err != nil {
		return apierrors.Storage(err)
	}
	if !found {
		return apierrors.DatabaseNotFound(id)
	}
	return nil
}

func assignIDs(db *entity.Database) {
	for i := range db.Schema {
		p := &db.Schema[i]
		if p.ID == "" {
			p.ID = ksid.NewID().String()
		}
		for j := range p.Options {
			if p.Options[j].ID == "" {
				p.Options[j].ID = ksid.NewID().String()
			}
		}
	}
}
