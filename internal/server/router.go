// Package server exposes the store over a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/maruel/pmboard/internal/server/handlers"
	"github.com/maruel/pmboard/internal/server/ratelimit"
	"github.com/maruel/pmboard/internal/storage"
	"github.com/maruel/pmboard/internal/storage/content"
	"github.com/maruel/pmboard/internal/storage/git"
)

// Router is the API handler. Close releases the rate limiter.
type Router struct {
	http.Handler
	limiter *ratelimit.Limiter
}

// Close stops background work.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

// NewRouter creates and configures the HTTP router. repo may be nil when
// versioning is disabled.
func NewRouter(fs *storage.FileStore, repo *git.Repo, cfg *storage.ServerConfig, version string) *Router {
	databases := content.NewDatabaseService(fs)
	pages := content.NewPageService(fs)
	dh := handlers.NewDatabaseHandler(databases)
	ph := handlers.NewPageHandler(pages)
	hh := handlers.NewHistoryHandler(databases, repo)
	sh := handlers.NewSummaryHandler(databases, pages)
	health := handlers.NewHealthHandler(version)

	mux := http.NewServeMux()
	mux.Handle("GET /api/health", Wrap(health.Health))

	mux.Handle("GET /api/databases", Wrap(dh.ListDatabases))
	mux.Handle("POST /api/databases", Wrap(dh.CreateDatabase))
	mux.Handle("GET /api/databases/{id}", Wrap(dh.GetDatabase))
	mux.Handle("PUT /api/databases/{id}", Wrap(dh.UpsertDatabase))
	mux.Handle("DELETE /api/databases/{id}", Wrap(dh.DeleteDatabase))

	mux.Handle("GET /api/databases/{id}/pages", Wrap(ph.ListPages))
	mux.Handle("POST /api/databases/{id}/pages", Wrap(ph.CreatePage))
	mux.Handle("GET /api/databases/{id}/pages/{pid}", Wrap(ph.GetPage))
	mux.Handle("PATCH /api/databases/{id}/pages/{pid}", Wrap(ph.PatchPage))
	mux.Handle("DELETE /api/databases/{id}/pages/{pid}", Wrap(ph.DeletePage))
	mux.Handle("PUT /api/databases/{id}/pages/{pid}/properties/{prop}", Wrap(ph.SetProperty))

	mux.Handle("GET /api/databases/{id}/history", Wrap(hh.History))
	mux.Handle("GET /api/databases/{id}/summary", Wrap(sh.Summary))
	mux.Handle("GET /api/schema/{kind}", Wrap(handlers.Schema))

	limiter := ratelimit.NewLimiter(cfg.RateLimits.WriteRatePerMin, time.Minute, 0)
	var h http.Handler = mux
	h = WriteGuard(cfg.JWTSecret, limiter, cfg.MaxRequestBodyBytes)(h)
	h = LoggingMiddleware(h)
	return &Router{Handler: h, limiter: limiter}
}
