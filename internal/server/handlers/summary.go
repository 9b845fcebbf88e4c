package handlers

import (
	"context"
	"time"

	"github.com/maruel/pmboard/internal/errors"
	"github.com/maruel/pmboard/internal/report"
	"github.com/maruel/pmboard/internal/storage/content"
)

// SummaryHandler renders daily summaries.
type SummaryHandler struct {
	databases *content.DatabaseService
	pages     *content.PageService
	now       func() time.Time
}

// NewSummaryHandler creates a summary handler.
func NewSummaryHandler(databases *content.DatabaseService, pages *content.PageService) *SummaryHandler {
	return &SummaryHandler{databases: databases, pages: pages, now: time.Now}
}

// SummaryRequest is a request for the daily summary of a database.
type SummaryRequest struct {
	DatabaseID string `path:"id"`
	Date       string `query:"date"` // YYYY-MM-DD, defaults to today (UTC).
}

// SummaryResponse holds the rendered report.
type SummaryResponse struct {
	Date        string `json:"date"`
	ActiveTasks int    `json:"activeTasks"`
	Markdown    string `json:"markdown"`
}

// Summary renders the daily summary of a database.
func (h *SummaryHandler) Summary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	day := h.now().UTC()
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			return nil, errors.Validation("invalid date", err).WithDetail("field", "date")
		}
		day = d
	}
	db, err := h.databases.Get(ctx, req.DatabaseID)
	if err != nil {
		return nil, err
	}
	pages, err := h.pages.List(ctx, req.DatabaseID)
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{
		Date:        day.Format(time.DateOnly),
		ActiveTasks: len(report.ActiveTasks(db, pages)),
		Markdown:    report.DailySummary(db, pages, day),
	}, nil
}
