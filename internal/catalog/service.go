package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)
	Search(ctx context.Context, filter SearchFilter) ([]Book, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountTotals(ctx context.Context) (total, available int, err error)
}

// Service coordinates catalog operations.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers a new book.
func (s *Service) Create(ctx context.Context, input CreateBookInput) (*Book, error) {
	book, err := NewBook(input, s.now())
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureUniqueISBN(ctx, tx, book); err != nil {
			return err
		}
		return tx.Add(ctx, book)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Get returns one book.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Update changes descriptive data.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*Book, error) {
	return s.mutate(ctx, id, func(ctx context.Context, tx TxRepository, book *Book) error {
		if err := book.Update(input, s.now()); err != nil {
			return err
		}
		return ensureUniqueISBN(ctx, tx, book)
	})
}

// SetLocation moves a book to another shelf.
func (s *Service) SetLocation(ctx context.Context, id uuid.UUID, input LocationInput) (*Book, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ TxRepository, book *Book) error {
		book.SetLocation(input.Location, s.now())
		return nil
	})
}

// ChangeStatus applies an explicit status change.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, input StatusInput) (*Book, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ TxRepository, book *Book) error {
		return book.ChangeStatus(input.Status, s.now())
	})
}

// Search looks books up by title and/or author. One of them is required.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Book, error) {
	if strings.TrimSpace(filter.Title) == "" && strings.TrimSpace(filter.Author) == "" {
		return nil, ErrSearchTermRequired
	}
	if filter.Limit <= 0 || filter.Limit > shared.MaxLimit {
		filter.Limit = shared.DefaultLimit
	}
	return s.repo.Search(ctx, filter)
}

// CountByStatus groups books by status.
func (s *Service) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	return s.repo.CountByStatus(ctx)
}

// CountTotals returns the number of titles and how many can be lent right now.
func (s *Service) CountTotals(ctx context.Context) (int, int, error) {
	return s.repo.CountTotals(ctx)
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(context.Context, TxRepository, *Book) error) (*Book, error) {
	var book *Book
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		book, err = tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, book); err != nil {
			return err
		}
		return tx.Update(ctx, book)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func ensureUniqueISBN(ctx context.Context, tx TxRepository, book *Book) error {
	if book.ISBN == nil {
		return nil
	}
	exists, err := tx.ExistsISBN(ctx, *book.ISBN, book.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateISBN, *book.ISBN)
	}
	return nil
}
