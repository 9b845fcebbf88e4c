package handlers

import (
	"context"

	"github.com/maruel/pmboard/internal/errors"
	"github.com/maruel/pmboard/internal/storage"
	"github.com/maruel/pmboard/internal/storage/content"
	"github.com/maruel/pmboard/internal/storage/git"
)

// HistoryHandler serves the commit history of page collections.
type HistoryHandler struct {
	databases *content.DatabaseService
	repo      *git.Repo
}

// NewHistoryHandler creates a history handler. repo may be nil when
// versioning is disabled.
func NewHistoryHandler(databases *content.DatabaseService, repo *git.Repo) *HistoryHandler {
	return &HistoryHandler{databases: databases, repo: repo}
}

// HistoryRequest is a request for the history of a database's pages.
type HistoryRequest struct {
	DatabaseID string `path:"id"`
	Limit      int    `query:"limit"`
}

// HistoryResponse lists commits, newest first.
type HistoryResponse struct {
	History []*git.Commit `json:"history"`
}

// History returns the commits that touched the pages of a database.
func (h *HistoryHandler) History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	if h.repo == nil {
		return nil, errors.NotImplemented("history")
	}
	if _, err := h.databases.Get(ctx, req.DatabaseID); err != nil {
		return nil, err
	}
	commits, err := h.repo.History(ctx, storage.PagesRelPath(req.DatabaseID), req.Limit)
	if err != nil {
		return nil, errors.InternalWithError("failed to read history", err)
	}
	return &HistoryResponse{History: commits}, nil
}
