package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/libris/libris/internal/jobs"
	"github.com/libris/libris/internal/loans"
	"github.com/libris/libris/internal/notifications"
	"github.com/libris/libris/internal/shared"
)

// OverdueLister lists active loans past due.
type OverdueLister interface {
	ListOverdue(ctx context.Context, ref time.Time) ([]*loans.Loan, error)
}

// Notifier stores and dispatches notifications.
type Notifier interface {
	Create(ctx context.Context, input notifications.CreateInput) (*notifications.Notification, error)
}

// KeyStore guards against sending the same reminder twice.
type KeyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// OverdueScanJob creates one reminder per overdue loan and day.
type OverdueScanJob struct {
	loans    OverdueLister
	notifier Notifier
	keys     KeyStore
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(lister OverdueLister, notifier Notifier, keys KeyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		loans:    lister,
		notifier: notifier,
		keys:     keys,
		logger:   logger,
		metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ScanResult summarises one run.
type ScanResult struct {
	Overdue  int
	Reminded int
	Skipped  int
}

// Handle executes the overdue scan task.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("overdue scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	ref := j.clock()
	if payload.Ref != "" {
		parsed, err := time.Parse(time.RFC3339, payload.Ref)
		if err != nil {
			return fmt.Errorf("overdue scan: ref: %v: %w", err, asynq.SkipRetry)
		}
		ref = parsed.UTC()
	}
	_, err := j.Run(ctx, ref)
	return err
}

// Run scans at ref. Reminders already sent for a loan on ref's date are skipped.
func (j *OverdueScanJob) Run(ctx context.Context, ref time.Time) (result ScanResult, err error) {
	tracker := j.metrics.Track(TaskOverdueScan)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger.With(slog.String("ref", ref.Format(time.RFC3339)))
	overdue, err := j.loans.ListOverdue(ctx, ref)
	if err != nil {
		logger.Error("list overdue loans", slog.Any("error", err))
		return result, err
	}
	result.Overdue = len(overdue)

	day := ref.Format("2006-01-02")
	for _, loan := range overdue {
		sent, err := j.remind(ctx, loan, ref, day)
		if err != nil {
			logger.Error("overdue reminder failed", slog.String("loan_id", loan.ID().String()), slog.Any("error", err))
			return result, err
		}
		if sent {
			result.Reminded++
		} else {
			result.Skipped++
		}
	}
	j.metrics.AddReminders(result.Reminded)
	logger.Info("overdue scan finished",
		slog.Int("overdue", result.Overdue),
		slog.Int("reminded", result.Reminded),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

func (j *OverdueScanJob) remind(ctx context.Context, loan *loans.Loan, ref time.Time, day string) (bool, error) {
	key := reminderKey(loan.ID(), day)
	if err := j.keys.CheckAndInsert(ctx, key, "jobs"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return false, nil
		}
		return false, err
	}
	_, err := j.notifier.Create(ctx, notifications.CreateInput{
		BorrowerID: loan.BorrowerID(),
		Subject:    "Overdue loan",
		Message:    reminderMessage(loan, ref),
		Kind:       notifications.KindOverdueReminder,
	})
	if err != nil {
		_ = j.keys.Delete(ctx, key)
		return false, err
	}
	return true, nil
}

func reminderKey(loanID uuid.UUID, day string) string {
	return fmt.Sprintf("overdue:%s:%s", loanID, day)
}

func reminderMessage(loan *loans.Loan, ref time.Time) string {
	due := loan.Period().Due()
	days := loans.LateDays(due, ref)
	return fmt.Sprintf("Book %s was due on %s and is %d day(s) late. Please return it to avoid further penalties.",
		loan.BookID(), due.Format("2006-01-02"), days)
}
