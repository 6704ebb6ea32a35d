package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/libris/libris/internal/borrowers"
	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/loans"
	"github.com/libris/libris/internal/notifications"
	"github.com/libris/libris/internal/observability"
	"github.com/libris/libris/internal/penalties"
	"github.com/libris/libris/internal/reports"
	"github.com/libris/libris/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	CatalogHandler       *catalog.Handler
	BorrowersHandler     *borrowers.Handler
	LoansHandler         *loans.Handler
	PenaltiesHandler     *penalties.Handler
	NotificationsHandler *notifications.Handler
	ReportsHandler       *reports.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with Libris defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.BorrowersHandler != nil {
			params.BorrowersHandler.MountRoutes(r)
		}
		if params.LoansHandler != nil {
			params.LoansHandler.MountRoutes(r)
		}
		if params.PenaltiesHandler != nil {
			params.PenaltiesHandler.MountRoutes(r)
		}
		if params.NotificationsHandler != nil {
			params.NotificationsHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
