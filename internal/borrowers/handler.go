package borrowers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libris/libris/internal/platform/httpx"
)

// Invalidator is told when a committed write changes borrower counts.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Handler wires HTTP endpoints for borrowers.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	invalidator Invalidator
}

// NewHandler constructs borrowers handler. invalidator may be nil.
func NewHandler(logger *slog.Logger, service *Service, invalidator Invalidator) *Handler {
	return &Handler{logger: logger, service: service, invalidator: invalidator}
}

// MountRoutes registers borrower routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/borrowers", h.create)
	r.Get("/borrowers/{id}", h.show)
	r.Put("/borrowers/{id}", h.update)
	r.Post("/borrowers/{id}/deactivate", h.deactivate)
	r.Post("/borrowers/{id}/reactivate", h.reactivate)
	r.Post("/borrowers/{id}/roles", h.assignRole)
	r.Delete("/borrowers/{id}/roles/{name}", h.revokeRole)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateBorrowerInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	borrower, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("borrower created", slog.String("borrower_id", borrower.ID.String()))
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, borrower)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.Get)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBorrowerInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.withID(w, r, func(ctx context.Context, id uuid.UUID) (*Borrower, error) {
		return h.service.Update(ctx, id, req)
	})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if h.withID(w, r, h.service.Deactivate) {
		h.invalidate(r.Context())
	}
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	if h.withID(w, r, h.service.Reactivate) {
		h.invalidate(r.Context())
	}
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req RoleInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.withID(w, r, func(ctx context.Context, id uuid.UUID) (*Borrower, error) {
		return h.service.AssignRole(ctx, id, req.Role)
	})
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "name")
	h.withID(w, r, func(ctx context.Context, id uuid.UUID) (*Borrower, error) {
		return h.service.RevokeRole(ctx, id, role)
	})
}

// withID responds with the borrower fn returns and reports whether it succeeded.
func (h *Handler) withID(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*Borrower, error)) bool {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	borrower, err := fn(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	httpx.JSON(w, http.StatusOK, borrower)
	return true
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Bump(ctx); err != nil {
		h.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
