package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	BorrowerExists(ctx context.Context, id uuid.UUID) (bool, error)
	Add(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListUnread(ctx context.Context, borrowerID uuid.UUID) ([]Notification, error)
	MarkAllRead(ctx context.Context, borrowerID uuid.UUID) (int, error)
	CountUnread(ctx context.Context, borrowerID uuid.UUID) (int, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Dispatcher queues asynchronous delivery of a stored notification.
type Dispatcher interface {
	EnqueueDelivery(ctx context.Context, notificationID uuid.UUID) error
}

// Service coordinates notification operations.
type Service struct {
	repo       RepositoryPort
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds Service. A nil dispatcher leaves notifications undelivered
// until the worker picks them up another way.
func NewService(repo RepositoryPort, dispatcher Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, dispatcher: dispatcher, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a notification and queues its delivery.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Notification, error) {
	n, err := New(input, s.now())
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.BorrowerExists(ctx, input.BorrowerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrBorrowerNotFound, input.BorrowerID)
	}
	if err := s.repo.Add(ctx, n); err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueDelivery(ctx, n.ID); err != nil {
			s.logger.Warn("enqueue notification delivery", slog.String("notification_id", n.ID.String()), slog.Any("error", err))
		}
	}
	return n, nil
}

// ListUnread returns unread notifications of a borrower.
func (s *Service) ListUnread(ctx context.Context, borrowerID uuid.UUID) ([]Notification, error) {
	return s.repo.ListUnread(ctx, borrowerID)
}

// MarkAllRead marks every unread notification of a borrower as read.
func (s *Service) MarkAllRead(ctx context.Context, borrowerID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, borrowerID)
}

// CountUnread counts unread notifications of a borrower.
func (s *Service) CountUnread(ctx context.Context, borrowerID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, borrowerID)
}

// Deliver hands a notification to the borrower's channel and records the
// delivery time. Delivering twice is a no-op.
func (s *Service) Deliver(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.DeliveredAt != nil {
		return n, nil
	}
	now := s.now()
	if err := s.repo.MarkDelivered(ctx, id, now); err != nil {
		return nil, err
	}
	n.DeliveredAt = &now
	s.logger.Info("notification delivered",
		slog.String("notification_id", n.ID.String()),
		slog.String("borrower_id", n.BorrowerID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("subject", n.Subject))
	return n, nil
}
