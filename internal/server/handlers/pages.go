package handlers

import (
	"context"

	"github.com/maruel/pmboard/internal/storage/content"
	"github.com/maruel/pmboard/internal/storage/entity"
)

// PageHandler handles page-related HTTP requests.
type PageHandler struct {
	pages *content.PageService
}

// NewPageHandler creates a new page handler.
func NewPageHandler(pages *content.PageService) *PageHandler {
	return &PageHandler{pages: pages}
}

// ListPagesRequest is a request to list the pages of a database.
type ListPagesRequest struct {
	DatabaseID string `path:"id"`
}

// ListPagesResponse is a response containing a list of pages.
type ListPagesResponse struct {
	Pages []entity.Page `json:"pages"`
}

// GetPageRequest is a request to get a page.
type GetPageRequest struct {
	DatabaseID string `path:"id"`
	PageID     string `path:"pid"`
}

// CreatePageRequest is a request to create a page.
type CreatePageRequest struct {
	DatabaseID string         `path:"id"`
	Title      string         `json:"title"`
	Properties map[string]any `json:"properties,omitempty"`
	Content    string         `json:"content,omitempty"`
}

// PatchPageRequest changes the fields present in the body. Properties are
// merged; a null value removes the property.
type PatchPageRequest struct {
	DatabaseID string         `path:"id"`
	PageID     string         `path:"pid"`
	Title      *string        `json:"title,omitempty"`
	Content    *string        `json:"content,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SetPropertyRequest sets one property value. A null or absent value
// removes the property.
type SetPropertyRequest struct {
	DatabaseID string `path:"id"`
	PageID     string `path:"pid"`
	PropertyID string `path:"prop"`
	Value      any    `json:"value"`
}

// DeletePageRequest is a request to delete a page.
type DeletePageRequest struct {
	DatabaseID string `path:"id"`
	PageID     string `path:"pid"`
}

// ListPages returns the pages of a database.
func (h *PageHandler) ListPages(ctx context.Context, req ListPagesRequest) (*ListPagesResponse, error) {
	pages, err := h.pages.List(ctx, req.DatabaseID)
	if err != nil {
		return nil, err
	}
	return &ListPagesResponse{Pages: pages}, nil
}

// GetPage returns one page.
func (h *PageHandler) GetPage(ctx context.Context, req GetPageRequest) (*entity.Page, error) {
	return h.pages.Get(ctx, req.DatabaseID, req.PageID)
}

// CreatePage creates a page.
func (h *PageHandler) CreatePage(ctx context.Context, req CreatePageRequest) (*entity.Page, error) {
	return h.pages.Create(ctx, req.DatabaseID, req.Title, req.Properties, req.Content)
}

// PatchPage updates the title, content or properties of a page.
func (h *PageHandler) PatchPage(ctx context.Context, req PatchPageRequest) (*entity.Page, error) {
	return h.pages.Patch(ctx, req.DatabaseID, req.PageID, content.PagePatch{
		Title:      req.Title,
		Content:    req.Content,
		Properties: req.Properties,
	})
}

// SetProperty sets one property of a page.
func (h *PageHandler) SetProperty(ctx context.Context, req SetPropertyRequest) (*entity.Page, error) {
	return h.pages.SetProperty(ctx, req.DatabaseID, req.PageID, req.PropertyID, req.Value)
}

// DeletePage deletes a page.
func (h *PageHandler) DeletePage(ctx context.Context, req DeletePageRequest) (*DeleteResponse, error) {
	if err := h.pages.Delete(ctx, req.DatabaseID, req.PageID); err != nil {
		return nil, err
	}
	return &DeleteResponse{Deleted: true}, nil
}
