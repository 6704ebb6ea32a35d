package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/libris/libris/internal/borrowers"
	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/shared"
)

type stubBooks struct {
	seen map[string]bool
	err  error
}

func (s *stubBooks) Create(_ context.Context, input catalog.CreateBookInput) (*catalog.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.seen[*input.ISBN] {
		return nil, catalog.ErrDuplicateISBN
	}
	s.seen[*input.ISBN] = true
	return &catalog.Book{ID: uuid.New(), Title: input.Title}, nil
}

type stubBorrowers struct {
	seen map[string]bool
}

func (s *stubBorrowers) Create(_ context.Context, input borrowers.CreateBorrowerInput) (*borrowers.Borrower, error) {
	if s.seen[input.Email] {
		return nil, fmt.Errorf("%w: email already registered", shared.ErrConflict)
	}
	s.seen[input.Email] = true
	return &borrowers.Borrower{ID: uuid.New(), Email: input.Email}, nil
}

func TestSeedIsRepeatable(t *testing.T) {
	books := &stubBooks{seen: map[string]bool{}}
	people := &stubBorrowers{seen: map[string]bool{}}
	var out bytes.Buffer

	first, err := seed(context.Background(), books, people, &out)
	require.NoError(t, err)
	require.Equal(t, len(demoBooks()), first.Books)
	require.Equal(t, len(demoBorrowers()), first.Borrowers)
	require.Zero(t, first.Skipped)

	second, err := seed(context.Background(), books, people, &out)
	require.NoError(t, err)
	require.Zero(t, second.Books)
	require.Zero(t, second.Borrowers)
	require.Equal(t, len(demoBooks())+len(demoBorrowers()), second.Skipped)
	require.Contains(t, out.String(), "Seeding books")
}

func TestSeedStopsOnUnexpectedError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := seed(context.Background(), &stubBooks{seen: map[string]bool{}, err: boom}, &stubBorrowers{seen: map[string]bool{}}, &bytes.Buffer{})
	require.ErrorIs(t, err, boom)
}
