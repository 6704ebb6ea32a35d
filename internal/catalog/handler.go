package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/libris/libris/internal/platform/httpx"
	"github.com/libris/libris/internal/shared"
)

// Invalidator is told when a committed write changes catalog counts.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	invalidator Invalidator
}

// NewHandler constructs catalog handler. invalidator may be nil.
func NewHandler(logger *slog.Logger, service *Service, invalidator Invalidator) *Handler {
	return &Handler{logger: logger, service: service, invalidator: invalidator}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	book, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("book created", slog.String("book_id", book.ID.String()), slog.Int("copies", book.TotalCopies))
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, book)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req UpdateBookInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	book, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req LocationInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	book, err := h.service.SetLocation(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req StatusInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	book, err := h.service.ChangeStatus(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("book status changed", slog.String("book_id", id.String()), slog.String("status", string(book.Status)))
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.PageFromQuery(q)
	books, err := h.service.Search(r.Context(), SearchFilter{
		Title:  q.Get("title"),
		Author: q.Get("author"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if books == nil {
		books = []Book{}
	}
	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Bump(ctx); err != nil {
		h.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
