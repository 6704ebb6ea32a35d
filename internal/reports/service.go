// Package reports serves cached circulation statistics.
package reports

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/loans"
)

// BookStats counts catalog entries.
type BookStats interface {
	CountByStatus(ctx context.Context) ([]catalog.StatusCount, error)
	CountTotals(ctx context.Context) (total, available int, err error)
}

// LoanStats counts loans.
type LoanStats interface {
	CountByStatus(ctx context.Context) (map[loans.Status]int, error)
	CountOverdue(ctx context.Context, ref time.Time) (int, error)
}

// PenaltyStats counts penalties in force.
type PenaltyStats interface {
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// BorrowerStats counts borrowers.
type BorrowerStats interface {
	CountActive(ctx context.Context) (total, active int, err error)
}

// StatusCount is one row of a by-status report.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// BorrowerCounts reports registered and active borrowers.
type BorrowerCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// PenaltyCount reports penalties in force.
type PenaltyCount struct {
	Active int `json:"active"`
}

// Summary is the administrative dashboard.
type Summary struct {
	Users           int       `json:"users"`
	ActiveUsers     int       `json:"active_users"`
	Books           int       `json:"books"`
	AvailableBooks  int       `json:"available_books"`
	ActiveLoans     int       `json:"active_loans"`
	OverdueLoans    int       `json:"overdue_loans"`
	ActivePenalties int       `json:"active_penalties"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Sources groups the counters the reports read from.
type Sources struct {
	Books     BookStats
	Loans     LoanStats
	Penalties PenaltyStats
	Borrowers BorrowerStats
}

// Service coordinates report queries with the cache layer.
type Service struct {
	src   Sources
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

// NewService wires the counters with a Cache helper.
func NewService(src Sources, cache *Cache) *Service {
	return &Service{src: src, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Bump invalidates every cached report.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// BooksByStatus groups the catalog by status.
func (s *Service) BooksByStatus(ctx context.Context) ([]StatusCount, error) {
	var out []StatusCount
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		counts, err := s.src.Books.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]StatusCount, 0, len(counts))
		for _, c := range counts {
			rows = append(rows, StatusCount{Status: string(c.Status), Count: c.Count})
		}
		return rows, nil
	}, "books-by-status")
	return out, err
}

// LoansByStatus groups loans by status.
func (s *Service) LoansByStatus(ctx context.Context) ([]StatusCount, error) {
	var out []StatusCount
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		counts, err := s.src.Loans.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		return sortedCounts(counts), nil
	}, "loans-by-status")
	return out, err
}

// ActivePenalties counts penalties in force now.
func (s *Service) ActivePenalties(ctx context.Context) (PenaltyCount, error) {
	var out PenaltyCount
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		n, err := s.src.Penalties.CountActive(ctx, s.now())
		return PenaltyCount{Active: n}, err
	}, "active-penalties")
	return out, err
}

// ActiveBorrowers counts registered and active borrowers.
func (s *Service) ActiveBorrowers(ctx context.Context) (BorrowerCounts, error) {
	var out BorrowerCounts
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		total, active, err := s.src.Borrowers.CountActive(ctx)
		return BorrowerCounts{Total: total, Active: active}, err
	}, "active-borrowers")
	return out, err
}

// Summary builds the dashboard. Concurrent callers share one computation.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	err := s.cached(ctx, &out, s.buildSummary, "summary")
	return out, err
}

func (s *Service) buildSummary(ctx context.Context) (any, error) {
	now := s.now()
	sum := Summary{GeneratedAt: now}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.Users, sum.ActiveUsers, err = s.src.Borrowers.CountActive(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		sum.Books, sum.AvailableBooks, err = s.src.Books.CountTotals(ctx)
		return err
	})
	g.Go(func() error {
		counts, err := s.src.Loans.CountByStatus(ctx)
		if err != nil {
			return err
		}
		sum.ActiveLoans = counts[loans.StatusActive]
		return nil
	})
	g.Go(func() error {
		var err error
		sum.OverdueLoans, err = s.src.Loans.CountOverdue(ctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		sum.ActivePenalties, err = s.src.Penalties.CountActive(ctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sum, nil
}

// cached resolves the versioned key, then loads through singleflight so that a
// cold key is computed once per instance. The shared load does not inherit the
// first caller's cancellation; each caller still stops waiting on its own ctx.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return err
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		var raw rawJSON
		if err := s.cache.FetchJSON(loadCtx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(rawJSON), dest)
	}
}

// rawJSON carries the encoded payload through singleflight so each caller
// decodes into its own destination.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func sortedCounts(counts map[loans.Status]int) []StatusCount {
	rows := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		rows = append(rows, StatusCount{Status: string(status), Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Status < rows[j].Status })
	return rows
}
