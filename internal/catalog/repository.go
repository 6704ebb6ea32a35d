package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/libris/libris/internal/platform/db"
)

const bookColumns = `id, title, author, isbn, location, published_at, total_copies, available_copies, status, version, created_at, updated_at`

// TxRepository exposes operations usable inside a unit of work.
type TxRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)
	ExistsISBN(ctx context.Context, isbn string, exclude uuid.UUID) (bool, error)
	Add(ctx context.Context, book *Book) error
	Update(ctx context.Context, book *Book) error
}

// Repository persists books in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewQueries(tx))
	})
}

// GetByID loads a book outside of a transaction.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Book, error) {
	return NewQueries(r.pool).GetByID(ctx, id)
}

// Search finds books whose title or author contains the given terms.
func (r *Repository) Search(ctx context.Context, filter SearchFilter) ([]Book, error) {
	ds := goqu.Dialect("postgres").
		From("books").
		Select(goqu.L(bookColumns)).
		Order(goqu.I("title").Asc(), goqu.I("id").Asc()).
		Limit(uint(filter.Limit)).
		Offset(uint(filter.Offset)).
		Prepared(true)
	if term := strings.TrimSpace(filter.Title); term != "" {
		ds = ds.Where(goqu.L("lower(title)").Like("%" + strings.ToLower(term) + "%"))
	}
	if term := strings.TrimSpace(filter.Author); term != "" {
		ds = ds.Where(goqu.L("lower(author)").Like("%" + strings.ToLower(term) + "%"))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("catalog: build search: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var books []Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// CountByStatus groups the catalog by status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM books GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountTotals returns the number of titles and of titles with a copy on the shelf.
func (r *Repository) CountTotals(ctx context.Context) (total, available int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE available_copies > 0 AND status IN ('AVAILABLE', 'LOANED')) FROM books`).
		Scan(&total, &available)
	return total, available, err
}

// Queries runs book statements against a pool or a transaction.
type Queries struct {
	db db.DBTX
}

// NewQueries binds book statements to conn.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// GetByID loads one book.
func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (*Book, error) {
	row := q.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", ErrBookNotFound, id)
		}
		return nil, err
	}
	return book, nil
}

// ExistsISBN reports whether another book already uses isbn.
func (q *Queries) ExistsISBN(ctx context.Context, isbn string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1 AND id <> $2)`, isbn, exclude).Scan(&exists)
	return exists, err
}

// Add inserts a new book.
func (q *Queries) Add(ctx context.Context, b *Book) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO books (id, title, author, isbn, location, published_at, total_copies, available_copies, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.Title, b.Author, b.ISBN, b.Location, b.PublishedAt, b.TotalCopies, b.AvailableCopies, b.Status, b.Version, b.CreatedAt, b.UpdatedAt)
	return db.MapError(err)
}

// Update writes the book if nobody changed it since it was read.
func (q *Queries) Update(ctx context.Context, b *Book) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE books SET title = $3, author = $4, isbn = $5, location = $6, published_at = $7,
			total_copies = $8, available_copies = $9, status = $10, updated_at = $11, version = version + 1
		WHERE id = $1 AND version = $2`,
		b.ID, b.Version, b.Title, b.Author, b.ISBN, b.Location, b.PublishedAt,
		b.TotalCopies, b.AvailableCopies, b.Status, b.UpdatedAt)
	if err := db.ExpectOne(tag, err); err != nil {
		return fmt.Errorf("catalog: update book %s: %w", b.ID, err)
	}
	b.Version++
	return nil
}

func scanBook(row pgx.Row) (*Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Location, &b.PublishedAt,
		&b.TotalCopies, &b.AvailableCopies, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

var _ TxRepository = (*Queries)(nil)
