package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `id, borrower_id, subject, message, kind, read, delivered_at, created_at`

// Repository persists notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BorrowerExists reports whether the addressee exists.
func (r *Repository) BorrowerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM borrowers WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// Add inserts a notification.
func (r *Repository) Add(ctx context.Context, n *Notification) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.BorrowerID, n.Subject, n.Message, n.Kind, n.Read, n.DeliveredAt, n.CreatedAt)
	return err
}

// GetByID loads one notification.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", ErrNotificationNotFound, id)
		}
		return nil, err
	}
	return n, nil
}

// ListUnread returns the unread notifications of a borrower, newest first.
func (r *Repository) ListUnread(ctx context.Context, borrowerID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE borrower_id = $1 AND NOT read ORDER BY created_at DESC`, borrowerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkAllRead flags every unread notification of a borrower as read.
func (r *Repository) MarkAllRead(ctx context.Context, borrowerID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE borrower_id = $1 AND NOT read`, borrowerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// CountUnread counts unread notifications of a borrower.
func (r *Repository) CountUnread(ctx context.Context, borrowerID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE borrower_id = $1 AND NOT read`, borrowerID).Scan(&n)
	return n, err
}

// MarkDelivered stamps the delivery time once.
func (r *Repository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL`, id, at)
	return err
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.BorrowerID, &n.Subject, &n.Message, &n.Kind, &n.Read, &n.DeliveredAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
