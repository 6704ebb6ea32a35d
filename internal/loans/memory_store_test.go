package loans

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/borrowers"
	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/penalties"
	"github.com/libris/libris/internal/shared"
)

// memoryStore buffers writes per unit of work and applies them at commit after
// checking versions, mimicking optimistic concurrency in the database.
type memoryStore struct {
	mu        sync.Mutex
	loans     map[uuid.UUID]Snapshot
	books     map[uuid.UUID]catalog.Book
	borrowers map[uuid.UUID]borrowers.Borrower
	penalties []penalties.Penalty

	beforeCommit   func()
	failPenaltyAdd error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		loans:     make(map[uuid.UUID]Snapshot),
		books:     make(map[uuid.UUID]catalog.Book),
		borrowers: make(map[uuid.UUID]borrowers.Borrower),
	}
}

func (s *memoryStore) addBook(total int) catalog.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	b := catalog.Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", TotalCopies: total, AvailableCopies: total, Status: catalog.StatusAvailable, Version: 1, CreatedAt: now, UpdatedAt: now}
	s.books[b.ID] = b
	return b
}

func (s *memoryStore) addBorrower() borrowers.Borrower {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	b := borrowers.Borrower{ID: uuid.New(), Name: "Ada", Email: uuid.NewString() + "@example.org", Kind: borrowers.KindReader, Active: true, Version: 1, CreatedAt: now, UpdatedAt: now}
	s.borrowers[b.ID] = b
	return b
}

func (s *memoryStore) book(id uuid.UUID) catalog.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id]
}

func (s *memoryStore) borrower(id uuid.UUID) borrowers.Borrower {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.borrowers[id]
}

func (s *memoryStore) penaltyList() []penalties.Penalty {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.penalties)
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, UnitOfWork) error) error {
	u := &memoryUnit{
		store:     s,
		loans:     map[uuid.UUID]stagedLoan{},
		books:     map[uuid.UUID]stagedBook{},
		borrowers: map[uuid.UUID]stagedBorrower{},
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	if s.beforeCommit != nil {
		s.beforeCommit()
	}
	return u.commit()
}

func (s *memoryStore) Loans() LoanRepository {
	return &memoryUnit{store: s}
}

type stagedLoan struct {
	snap     Snapshot
	expected int64
	insert   bool
}

type stagedBook struct {
	book     catalog.Book
	expected int64
}

type stagedBorrower struct {
	borrower borrowers.Borrower
	expected int64
}

type memoryUnit struct {
	store     *memoryStore
	loans     map[uuid.UUID]stagedLoan
	books     map[uuid.UUID]stagedBook
	borrowers map[uuid.UUID]stagedBorrower
	penalties []penalties.Penalty
}

func (u *memoryUnit) Loans() LoanRepository         { return u }
func (u *memoryUnit) Books() BookRepository         { return memoryBooks{u} }
func (u *memoryUnit) Borrowers() BorrowerRepository { return memoryBorrowers{u} }
func (u *memoryUnit) Penalties() PenaltyRepository  { return memoryPenalties{u} }

func (u *memoryUnit) commit() error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range u.books {
		if s.books[id].Version != st.expected {
			return fmt.Errorf("%w: book %s", shared.ErrConflict, id)
		}
	}
	for id, st := range u.borrowers {
		if s.borrowers[id].Version != st.expected {
			return fmt.Errorf("%w: borrower %s", shared.ErrConflict, id)
		}
	}
	for id, st := range u.loans {
		if st.insert {
			if _, exists := s.loans[id]; exists {
				return fmt.Errorf("%w: loan %s", shared.ErrConflict, id)
			}
			continue
		}
		if s.loans[id].Version != st.expected {
			return fmt.Errorf("%w: loan %s", shared.ErrConflict, id)
		}
	}
	for id, st := range u.books {
		s.books[id] = st.book
	}
	for id, st := range u.borrowers {
		s.borrowers[id] = st.borrower
	}
	for id, st := range u.loans {
		s.loans[id] = st.snap
	}
	s.penalties = append(s.penalties, u.penalties...)
	return nil
}

func (u *memoryUnit) GetByID(_ context.Context, id uuid.UUID) (*Loan, error) {
	if st, ok := u.loans[id]; ok {
		return Restore(st.snap)
	}
	u.store.mu.Lock()
	snap, ok := u.store.loans[id]
	u.store.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrLoanNotFound, id)
	}
	return Restore(snap)
}

func (u *memoryUnit) Add(_ context.Context, loan *Loan) error {
	u.loans[loan.ID()] = stagedLoan{snap: loan.Snapshot(), insert: true}
	return nil
}

func (u *memoryUnit) Update(_ context.Context, loan *Loan) error {
	expected := loan.Version()
	loan.version++
	u.loans[loan.ID()] = stagedLoan{snap: loan.Snapshot(), expected: expected}
	return nil
}

func (u *memoryUnit) all() []Snapshot {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	out := make([]Snapshot, 0, len(u.store.loans))
	for _, s := range u.store.loans {
		out = append(out, s)
	}
	return out
}

func (u *memoryUnit) ExistsActiveOrPending(_ context.Context, bookID, borrowerID uuid.UUID) (bool, error) {
	for _, s := range u.all() {
		if s.BookID == bookID && s.BorrowerID == borrowerID && (s.Status == StatusPending || s.Status == StatusActive) {
			return true, nil
		}
	}
	return false, nil
}

func (u *memoryUnit) filter(keep func(Snapshot) bool) ([]*Loan, error) {
	var out []*Loan
	for _, s := range u.all() {
		if !keep(s) {
			continue
		}
		l, err := Restore(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (u *memoryUnit) FindOverdue(_ context.Context, ref time.Time) ([]*Loan, error) {
	return u.filter(func(s Snapshot) bool { return s.Status == StatusActive && s.Due.Before(ref) })
}

func (u *memoryUnit) ListByBorrower(_ context.Context, borrowerID uuid.UUID) ([]*Loan, error) {
	return u.filter(func(s Snapshot) bool { return s.BorrowerID == borrowerID })
}

func (u *memoryUnit) ListActiveByBook(_ context.Context, bookID uuid.UUID) ([]*Loan, error) {
	return u.filter(func(s Snapshot) bool { return s.BookID == bookID && s.Status == StatusActive })
}

type memoryBooks struct{ u *memoryUnit }

func (m memoryBooks) GetByID(_ context.Context, id uuid.UUID) (*catalog.Book, error) {
	if st, ok := m.u.books[id]; ok {
		b := st.book
		return &b, nil
	}
	m.u.store.mu.Lock()
	b, ok := m.u.store.books[id]
	m.u.store.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", catalog.ErrBookNotFound, id)
	}
	return &b, nil
}

func (m memoryBooks) Update(_ context.Context, b *catalog.Book) error {
	expected := b.Version
	b.Version++
	m.u.books[b.ID] = stagedBook{book: *b, expected: expected}
	return nil
}

type memoryBorrowers struct{ u *memoryUnit }

func (m memoryBorrowers) GetByID(_ context.Context, id uuid.UUID) (*borrowers.Borrower, error) {
	if st, ok := m.u.borrowers[id]; ok {
		b := st.borrower
		b.LoanIDs = slices.Clone(b.LoanIDs)
		return &b, nil
	}
	m.u.store.mu.Lock()
	b, ok := m.u.store.borrowers[id]
	m.u.store.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", borrowers.ErrBorrowerNotFound, id)
	}
	b.LoanIDs = slices.Clone(b.LoanIDs)
	return &b, nil
}

func (m memoryBorrowers) Update(_ context.Context, b *borrowers.Borrower) error {
	expected := b.Version
	b.Version++
	stored := *b
	stored.LoanIDs = slices.Clone(b.LoanIDs)
	m.u.borrowers[b.ID] = stagedBorrower{borrower: stored, expected: expected}
	return nil
}

type memoryPenalties struct{ u *memoryUnit }

func (m memoryPenalties) Add(_ context.Context, p *penalties.Penalty) error {
	if m.u.store.failPenaltyAdd != nil {
		return m.u.store.failPenaltyAdd
	}
	m.u.penalties = append(m.u.penalties, *p)
	return nil
}
