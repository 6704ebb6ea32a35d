package penalties

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestHandlerBumpsReportsOnWrites(t *testing.T) {
	repo := newMemoryRepo()
	borrower := uuid.New()
	repo.borrowers[borrower] = true
	inv := &countingInvalidator{}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo), inv)
	r := chi.NewRouter()
	h.MountRoutes(r)

	start := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	body := `{"borrower_id":"` + borrower.String() + `","amount":"4.00","starts_at":"` + start + `","ends_at":"` + end + `","reason":"lost card"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/penalties", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, inv.bumps)

	var id uuid.UUID
	for k := range repo.penalties {
		id = k
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/penalties/"+id.String()+"/close", strings.NewReader(`{"reason":"paid"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, inv.bumps)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/penalties/"+id.String()+"/close", strings.NewReader(`{"reason":"again"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 2, inv.bumps)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/penalties/borrower/"+borrower.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, inv.bumps)
}
