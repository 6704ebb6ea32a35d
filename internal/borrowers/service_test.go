package borrowers

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

	"github.com/libris/libris/internal/shared"
)

type memoryRepo struct {
	borrowers map[uuid.UUID]Borrower
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{borrowers: make(map[uuid.UUID]Borrower)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	return (&memoryTx{repo: r}).GetByID(ctx, id)
}

func (r *memoryRepo) CountActive(context.Context) (int, int, error) {
	active := 0
	for _, b := range r.borrowers {
		if b.Active {
			active++
		}
	}
	return len(r.borrowers), active, nil
}

func (tx *memoryTx) GetByID(_ context.Context, id uuid.UUID) (*Borrower, error) {
	b, ok := tx.repo.borrowers[id]
	if !ok {
		return nil, ErrBorrowerNotFound
	}
	b.Roles = append([]string(nil), b.Roles...)
	b.LoanIDs = append([]uuid.UUID(nil), b.LoanIDs...)
	return &b, nil
}

func (tx *memoryTx) ExistsEmail(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	for id, b := range tx.repo.borrowers {
		if id != exclude && strings.EqualFold(b.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) Add(_ context.Context, b *Borrower) error {
	tx.repo.borrowers[b.ID] = *b
	return nil
}

func (tx *memoryTx) Update(_ context.Context, b *Borrower) error {
	stored, ok := tx.repo.borrowers[b.ID]
	if !ok {
		return ErrBorrowerNotFound
	}
	if stored.Version != b.Version {
		return shared.ErrConflict
	}
	b.Version++
	tx.repo.borrowers[b.ID] = *b
	return nil
}

func TestNewBorrowerNormalizes(t *testing.T) {
	b, err := NewBorrower(CreateBorrowerInput{Name: "  ada   lovelace ", Email: "Ada@Example.ORG"}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", b.Name)
	require.Equal(t, "ada@example.org", b.Email)
	require.Equal(t, KindReader, b.Kind)
	require.True(t, b.Active)

	_, err = NewBorrower(CreateBorrowerInput{Name: "x", Email: "not-an-email"}, time.Now())
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewBorrower(CreateBorrowerInput{Name: "x", Email: "guest@example.org", Kind: "GUEST"}, time.Now())
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestNewBorrowerEmailMatchesRequestRule(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{email: "ada@example.org", ok: true},
		{email: " Ada@Example.org ", ok: true},
		{email: "<ada@example.org>", ok: false},
		{email: "Ada <ada@example.org>", ok: false},
		{email: "ada@", ok: false},
		{email: "", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			_, err := NewBorrower(CreateBorrowerInput{Name: "Ada", Email: tc.email}, time.Now())
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidEmail)
		})
	}
}

func TestNewBorrowerKeepsMixedCaseNames(t *testing.T) {
	cases := map[string]string{
		"ronald mcdonald":     "Ronald Mcdonald",
		"Ronald  McDonald":    "Ronald McDonald",
		"Juan de la Cruz":     "Juan de la Cruz",
		"  ANNE-MARIE o'neil": "ANNE-MARIE o'neil",
	}
	for in, want := range cases {
		b, err := NewBorrower(CreateBorrowerInput{Name: in, Email: "member@example.org"}, time.Now())
		require.NoError(t, err)
		require.Equal(t, want, b.Name)
	}
}

func TestRegisterLoanKeepsHistory(t *testing.T) {
	b, err := NewBorrower(CreateBorrowerInput{Name: "Grace", Email: "grace@example.org"}, time.Now())
	require.NoError(t, err)
	first, second := uuid.New(), uuid.New()

	b.RegisterLoan(first, time.Now())
	b.RegisterLoan(first, time.Now())
	b.RegisterLoan(second, time.Now())
	require.Equal(t, []uuid.UUID{first, second}, b.LoanIDs)
}

func TestServiceLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	b, err := svc.Create(ctx, CreateBorrowerInput{Name: "Alan Turing", Email: "alan@example.org", Kind: KindStaff})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateBorrowerInput{Name: "Impostor", Email: "ALAN@example.org"})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	b, err = svc.Deactivate(ctx, b.ID)
	require.NoError(t, err)
	require.False(t, b.Active)
	_, err = svc.Deactivate(ctx, b.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	b, err = svc.Reactivate(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, b.Active)

	b, err = svc.AssignRole(ctx, b.ID, " Librarian ")
	require.NoError(t, err)
	require.Equal(t, []string{"librarian"}, b.Roles)

	b, err = svc.RevokeRole(ctx, b.ID, "librarian")
	require.NoError(t, err)
	require.Empty(t, b.Roles)

	_, err = svc.RevokeRole(ctx, b.ID, "librarian")
	require.ErrorIs(t, err, shared.ErrNotFound)

	total, active, err := svc.CountActive(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, 1, active)
}

func TestHandlerCreateAndShow(t *testing.T) {
	svc := NewService(newMemoryRepo())
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/borrowers", strings.NewReader(`{"name":"edsger dijkstra","email":"ewd@example.org"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Edsger Dijkstra"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/borrowers", strings.NewReader(`{"name":"x","email":"nope"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/borrowers/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/borrowers/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestHandlerBumpsReportsOnMembershipChanges(t *testing.T) {
	repo := newMemoryRepo()
	inv := &countingInvalidator{}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo), inv)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/borrowers", strings.NewReader(`{"name":"barbara liskov","email":"liskov@example.org"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, inv.bumps)

	var path string
	for id := range repo.borrowers {
		path = "/borrowers/" + id.String()
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path+"/deactivate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, inv.bumps)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path+"/reactivate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, inv.bumps)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/borrowers/"+uuid.NewString()+"/deactivate", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 3, inv.bumps)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, inv.bumps)
}
