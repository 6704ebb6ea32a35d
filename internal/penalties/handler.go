package penalties

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libris/libris/internal/platform/httpx"
)

// Invalidator is told when a committed write changes penalty counts.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Handler wires HTTP endpoints for penalties.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	invalidator Invalidator
}

// NewHandler constructs penalties handler. invalidator may be nil.
func NewHandler(logger *slog.Logger, service *Service, invalidator Invalidator) *Handler {
	return &Handler{logger: logger, service: service, invalidator: invalidator}
}

// MountRoutes registers penalty routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/penalties", h.create)
	r.Get("/penalties/borrower/{id}", h.listByBorrower)
	r.Post("/penalties/{id}/close", h.close)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreatePenaltyInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("penalty created", slog.String("penalty_id", p.ID.String()), slog.String("amount", p.Amount.String()))
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) listByBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListActiveByBorrower(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req CloseInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.CloseEarly(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Bump(ctx); err != nil {
		h.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
