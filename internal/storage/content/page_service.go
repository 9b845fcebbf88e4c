package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apierrors "github.com/maruel/pmboard/internal/errors"
	"github.com/maruel/pmboard/internal/storage"
	"github.com/maruel/pmboard/internal/storage/entity"
)

// PageService handles page business logic.
type PageService struct {
	fs  *storage.FileStore
	now func() time.Time
}

// NewPageService creates a new page service.
func NewPageService(fs *storage.FileStore) *PageService {
	return &PageService{fs: fs, now: time.Now}
}

// PagePatch lists the fields to change on a page. Nil fields are left
// untouched. Properties are merged into the existing ones; a nil value
// removes the property.
type PagePatch struct {
	Title      *string
	Content    *string
	Properties map[string]any
}

// List returns the pages of a database.
func (s *PageService) List(_ context.Context, databaseID string) ([]entity.Page, error) {
	if _, ok := s.fs.GetDatabase(databaseID); !ok {
		return nil, apierrors.DatabaseNotFound(databaseID)
	}
	pages, err := s.fs.ListPages(databaseID)
	if err != nil {
		return nil, apierrors.Storage(err)
	}
	return pages, nil
}

// Get returns a page by ID.
func (s *PageService) Get(_ context.Context, databaseID, pageID string) (*entity.Page, error) {
	if _, ok := s.fs.GetDatabase(databaseID); !ok {
		return nil, apierrors.DatabaseNotFound(databaseID)
	}
	p, found, err := s.fs.GetPage(databaseID, pageID)
	if err != nil {
		return nil, apierrors.Storage(err)
	}
	if !found {
		return nil, apierrors.PageNotFound(databaseID, pageID)
	}
	return p, nil
}

// Create adds a page with a random UUID to a database.
func (s *PageService) Create(ctx context.Context, databaseID, title string, properties map[string]any, content string) (*entity.Page, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apierrors.MissingField("title")
	}
	db, ok := s.fs.GetDatabase(databaseID)
	if !ok {
		return nil, apierrors.DatabaseNotFound(databaseID)
	}
	props := map[string]any{}
	if err := mergeProperties(db, props, properties); err != nil {
		return nil, err
	}
	now := storage.FormatTime(s.now())
	p := &entity.Page{
		ID:         uuid.NewString(),
		DatabaseID: databaseID,
		Title:      title,
		Properties: props,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.fs.CreatePage(ctx, p); err != nil {
		return nil, apierrors.Storage(err)
	}
	return p, nil
}

// SetProperty sets a single property value. A nil value removes it.
func (s *PageService) SetProperty(ctx context.Context, databaseID, pageID, propertyID string, raw any) (*entity.Page, error) {
	return s.Patch(ctx, databaseID, pageID, PagePatch{Properties: map[string]any{propertyID: raw}})
}

// Patch applies the non-nil fields of patch to a page.
func (s *PageService) Patch(ctx context.Context, databaseID, pageID string, patch PagePatch) (*entity.Page, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apierrors.BadRequest("title cannot be empty")
	}
	db, ok := s.fs.GetDatabase(databaseID)
	if !ok {
		return nil, apierrors.DatabaseNotFound(databaseID)
	}
	// Fail fast on invalid values.
	if err := mergeProperties(db, map[string]any{}, patch.Properties); err != nil {
		return nil, err
	}
	p, found, err := s.fs.UpdatePage(ctx, databaseID, pageID, s.applyPatch(databaseID, patch))
	if err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apierrors.Storage(err)
	}
	if !found {
		return nil, apierrors.PageNotFound(databaseID, pageID)
	}
	return p, nil
}

// applyPatch returns the UpdatePage mutator for patch. Values are checked
// against the schema as it is when the mutator runs, inside the serialized
// section.
func (s *PageService) applyPatch(databaseID string, patch PagePatch) func(entity.Page) (entity.Page, error) {
	return func(p entity.Page) (entity.Page, error) {
		db, ok := s.fs.GetDatabase(databaseID)
		if !ok {
			return p, apierrors.DatabaseNotFound(databaseID)
		}
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Content != nil {
			p.Content = *patch.Content
		}
		if p.Properties == nil {
			p.Properties = map[string]any{}
		}
		return p, mergeProperties(db, p.Properties, patch.Properties)
	}
}

// Delete removes a page.
func (s *PageService) Delete(ctx context.Context, databaseID, pageID string) error {
	if _, ok := s.fs.GetDatabase(databaseID); !ok {
		return apierrors.DatabaseNotFound(databaseID)
	}
	found, err := s.fs.DeletePage(ctx, databaseID, pageID)
	if err != nil {
		return apierrors.Storage(err)
	}
	if !found {
		return apierrors.PageNotFound(databaseID, pageID)
	}
	return nil
}

// mergeProperties validates each value of src against the schema of db and
// stores its normalized form in dst. nil values delete the key.
func mergeProperties(db *entity.Database, dst, src map[string]any) error {
	for id, raw := range src {
		prop, ok := db.Property(id)
		if !ok {
			return apierrors.PropertyNotFound(db.ID, id)
		}
		v, err := entity.ParseValue(prop, raw)
		if err != nil {
			return apierrors.Validation("invalid property value", err).WithDetail("propertyId", id)
		}
		if v.Null {
			delete(dst, id)
		} else {
			dst[id] = v.Raw()
		}
	}
	return nil
}
