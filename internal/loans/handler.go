package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libris/libris/internal/platform/httpx"
	"github.com/libris/libris/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed loan requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Invalidator is told whenever a transition commits so cached reports refresh.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Handler wires HTTP endpoints for loans.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	audit       AuditPort
	idempotency IdempotencyPort
	invalidator Invalidator
	metrics     *Metrics
}

// HandlerDeps groups optional collaborators of the handler.
type HandlerDeps struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Invalidator Invalidator
	Metrics     *Metrics
}

// NewHandler constructs loans handler.
func NewHandler(logger *slog.Logger, service *Service, deps HandlerDeps) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		audit:       deps.Audit,
		idempotency: deps.Idempotency,
		invalidator: deps.Invalidator,
		metrics:     deps.Metrics,
	}
}

// MountRoutes registers loan routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/loans", h.request)
	r.Get("/loans/overdue", h.listOverdue)
	r.Get("/loans/borrower/{id}", h.listByBorrower)
	r.Get("/loans/book/{id}", h.listActiveByBook)
	r.Get("/loans/{id}", h.show)
	r.Post("/loans/{id}/activate", h.activate)
	r.Post("/loans/{id}/return", h.registerReturn)
	r.Post("/loans/{id}/cancel", h.cancel)
	r.Post("/loans/{id}/extend", h.extend)
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	var req RequestInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ctx := r.Context()
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(ctx, "loans:request:"+key, "loans"); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
	}
	loan, err := h.service.RequestLoan(ctx, req)
	if err != nil && key != "" && h.idempotency != nil {
		_ = h.idempotency.Delete(ctx, "loans:request:"+key)
	}
	h.finish(w, r, "request", loan, err, http.StatusCreated)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	loan, err := h.service.ActivateLoan(r.Context(), id)
	h.finish(w, r, "activate", loan, err, http.StatusOK)
}

func (h *Handler) registerReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req ReturnInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if req.ReturnedAt.IsZero() {
		req.ReturnedAt = time.Now().UTC()
	}
	loan, err := h.service.RegisterReturn(r.Context(), id, req)
	if err == nil && LateDays(loan.Period().Due(), *loan.ReturnedAt()) > 0 {
		h.metrics.penaltyGenerated()
		h.logger.Info("overdue penalty generated", slog.String("loan_id", id.String()), slog.String("borrower_id", loan.BorrowerID().String()))
	}
	h.finish(w, r, "return", loan, err, http.StatusOK)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req CancelInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	loan, err := h.service.CancelLoan(r.Context(), id, req.Reason)
	h.finish(w, r, "cancel", loan, err, http.StatusOK)
}

func (h *Handler) extend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req ExtendInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	loan, err := h.service.ExtendLoan(r.Context(), id, req.Days)
	h.finish(w, r, "extend", loan, err, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	loan, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(loan, time.Now().UTC()))
}

func (h *Handler) listByBorrower(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListByBorrower(r.Context(), id)
	h.respondList(w, list, err)
}

func (h *Handler) listActiveByBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListActiveByBook(r.Context(), id)
	h.respondList(w, list, err)
}

func (h *Handler) listOverdue(w http.ResponseWriter, r *http.Request) {
	ref, err := httpx.TimeQuery(r, "ref", time.Now().UTC())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListOverdue(r.Context(), ref)
	h.respondList(w, list, err)
}

func (h *Handler) respondList(w http.ResponseWriter, list []*Loan, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewViews(list, time.Now().UTC()))
}

func (h *Handler) loanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return uuid.Nil, false
	}
	return id, true
}

// finish records the outcome of a transition and writes the response.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, operation string, loan *Loan, err error, status int) {
	h.metrics.observe(operation, err)
	if err != nil {
		if shared.IsInvariantViolation(err) {
			h.logger.Error("loan invariant violated",
				slog.String("operation", operation),
				slog.String("loan_id", chi.URLParam(r, "id")),
				slog.Any("error", err))
		} else if !shared.IsClientError(err) {
			h.logger.Error("loan operation failed", slog.String("operation", operation), slog.Any("error", err))
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	ctx := r.Context()
	h.logger.Info("loan transition",
		slog.String("operation", operation),
		slog.String("loan_id", loan.ID().String()),
		slog.String("status", string(loan.Status())))
	if h.audit != nil {
		if auditErr := h.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.ActorFromContext(ctx),
			Action:   fmt.Sprintf("loan:%s", operation),
			Entity:   "loan",
			EntityID: loan.ID().String(),
			Meta: map[string]any{
				"book_id":     loan.BookID().String(),
				"borrower_id": loan.BorrowerID().String(),
				"status":      string(loan.Status()),
			},
		}); auditErr != nil {
			h.logger.Warn("audit loan transition", slog.Any("error", auditErr))
		}
	}
	if h.invalidator != nil {
		if bumpErr := h.invalidator.Bump(ctx); bumpErr != nil {
			h.logger.Warn("invalidate report cache", slog.Any("error", bumpErr))
		}
	}
	httpx.JSON(w, status, NewView(loan, time.Now().UTC()))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, shared.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, shared.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "internal"
	}
}
