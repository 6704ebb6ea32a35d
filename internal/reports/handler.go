package reports

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libris/libris/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/books-by-status", serve(h, h.service.BooksByStatus))
		r.Get("/loans-by-status", serve(h, h.service.LoansByStatus))
		r.Get("/active-penalties", serve(h, h.service.ActivePenalties))
		r.Get("/active-borrowers", serve(h, h.service.ActiveBorrowers))
		r.Get("/summary", serve(h, h.service.Summary))
		r.Get("/summary.csv", h.summaryCSV)
	})
}

func serve[T any](h *Handler, load func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := load(r.Context())
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func (h *Handler) summaryCSV(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="summary.csv"`)
	if err := WriteSummaryCSV(w, sum); err != nil {
		h.logger.Error("write summary csv", slog.Any("error", err))
	}
}
