package loans

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/libris/libris/internal/shared"
)

type fakeAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

type fakeIdempotency struct {
	keys map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

type handlerFixture struct {
	router      chi.Router
	store       *memoryStore
	audit       *fakeAudit
	idem        *fakeIdempotency
	invalidator *countingInvalidator
	metrics     *Metrics
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		store:       newMemoryStore(),
		audit:       &fakeAudit{},
		idem:        &fakeIdempotency{keys: map[string]bool{}},
		invalidator: &countingInvalidator{},
		metrics:     NewMetrics(prometheus.NewRegistry()),
	}
	svc := newTestService(f.store, ReserveOnActivation)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, HandlerDeps{Audit: f.audit, Idempotency: f.idem, Invalidator: f.invalidator, Metrics: f.metrics})
	r := chi.NewRouter()
	h.MountRoutes(r)
	f.router = r
	return f
}

func (f *handlerFixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func requestBody(bookID, borrowerID uuid.UUID) string {
	return fmt.Sprintf(`{"book_id":%q,"borrower_id":%q,"start":%q,"due":%q}`,
		bookID, borrowerID, t0.Format(time.RFC3339), t0.Add(14*day).Format(time.RFC3339))
}

func TestHandlerLifecycle(t *testing.T) {
	f := newHandlerFixture(t)
	book := f.store.addBook(1)
	borrower := f.store.addBorrower()

	rec := f.do(http.MethodPost, "/loans", requestBody(book.ID, borrower.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"PENDING"`)

	loans, err := newTestService(f.store, ReserveOnActivation).ListByBorrower(context.Background(), borrower.ID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	id := loans[0].ID().String()

	rec = f.do(http.MethodPost, "/loans/"+id+"/activate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"ACTIVE"`)

	rec = f.do(http.MethodPost, "/loans/"+id+"/activate", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	late := t0.Add(16 * day).Format(time.RFC3339)
	rec = f.do(http.MethodPost, "/loans/"+id+"/return", fmt.Sprintf(`{"returned_at":%q}`, late))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"RETURNED"`)

	rec = f.do(http.MethodPost, "/loans/"+id+"/cancel", `{"reason":"oops"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Len(t, f.audit.logs, 3)
	require.Equal(t, "loan:request", f.audit.logs[0].Action)
	require.Equal(t, "loan:return", f.audit.logs[2].Action)
	require.Equal(t, 3, f.invalidator.bumps)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.transitions.WithLabelValues("activate")))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.rejections.WithLabelValues("activate", "invalid_state")))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.penalties))
	require.Len(t, f.store.penaltyList(), 1)
}

func TestHandlerIdempotentRequest(t *testing.T) {
	f := newHandlerFixture(t)
	book := f.store.addBook(1)
	borrower := f.store.addBorrower()
	body := requestBody(book.ID, borrower.ID)

	rec := f.do(http.MethodPost, "/loans", body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/loans", body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusConflict, rec.Code)

	// A failed request frees its key.
	rec = f.do(http.MethodPost, "/loans", requestBody(uuid.New(), borrower.ID), "Idempotency-Key", "def")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.False(t, f.idem.keys["loans:request:def"])
}

func TestHandlerRejectsBadInput(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/loans", `{"book_id":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/loans", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/loans/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/loans/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/loans/"+uuid.NewString()+"/extend", `{"days":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/loans/"+uuid.NewString()+"/cancel", `{"reason":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListOverdue(t *testing.T) {
	f := newHandlerFixture(t)
	book := f.store.addBook(1)
	borrower := f.store.addBorrower()
	svc := newTestService(f.store, ReserveOnActivation)

	loan, err := svc.RequestLoan(context.Background(), requestInput(book.ID, borrower.ID))
	require.NoError(t, err)
	_, err = svc.ActivateLoan(context.Background(), loan.ID())
	require.NoError(t, err)

	ref := t0.Add(20 * day).Format(time.RFC3339)
	rec := f.do(http.MethodGet, "/loans/overdue?ref="+ref, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), loan.ID().String())

	rec = f.do(http.MethodGet, "/loans/overdue?ref=yesterday", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/loans/book/"+book.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"overdue":true`)
}
