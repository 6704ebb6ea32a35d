package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/libris/libris/internal/jobs"
	"github.com/libris/libris/internal/loans"
	"github.com/libris/libris/internal/notifications"
	"github.com/libris/libris/internal/shared"
)

var scanRef = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type stubLister struct {
	loans []*loans.Loan
	ref   time.Time
	err   error
}

func (s *stubLister) ListOverdue(_ context.Context, ref time.Time) ([]*loans.Loan, error) {
	s.ref = ref
	return s.loans, s.err
}

type stubNotifier struct {
	created []notifications.CreateInput
	err     error
}

func (s *stubNotifier) Create(_ context.Context, input notifications.CreateInput) (*notifications.Notification, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, input)
	return &notifications.Notification{ID: uuid.New(), BorrowerID: input.BorrowerID}, nil
}

type memoryKeys map[string]bool

func (m memoryKeys) CheckAndInsert(_ context.Context, key, _ string) error {
	if m[key] {
		return shared.ErrIdempotencyConflict
	}
	m[key] = true
	return nil
}

func (m memoryKeys) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func overdueLoan(t *testing.T) *loans.Loan {
	t.Helper()
	start := scanRef.Add(-20 * 24 * time.Hour)
	loan, err := loans.Restore(loans.Snapshot{
		ID:         uuid.New(),
		BookID:     uuid.New(),
		BorrowerID: uuid.New(),
		Start:      start,
		Due:        start.Add(14 * 24 * time.Hour),
		Status:     loans.StatusActive,
		CreatedAt:  start,
		UpdatedAt:  start,
		Version:    2,
	})
	require.NoError(t, err)
	return loan
}

func newScanJob(lister OverdueLister, notifier Notifier, keys KeyStore) *OverdueScanJob {
	job := NewOverdueScanJob(lister, notifier, keys, slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return scanRef }
	return job
}

func TestOverdueScanRemindsOncePerDay(t *testing.T) {
	first, second := overdueLoan(t), overdueLoan(t)
	lister := &stubLister{loans: []*loans.Loan{first, second}}
	notifier := &stubNotifier{}
	keys := memoryKeys{}
	job := newScanJob(lister, notifier, keys)
	ctx := context.Background()

	result, err := job.Run(ctx, scanRef)
	require.NoError(t, err)
	require.Equal(t, ScanResult{Overdue: 2, Reminded: 2}, result)
	require.Len(t, notifier.created, 2)
	require.Equal(t, first.BorrowerID(), notifier.created[0].BorrowerID)
	require.Equal(t, notifications.KindOverdueReminder, notifier.created[0].Kind)
	require.Contains(t, notifier.created[0].Message, "6 day(s) late")

	result, err = job.Run(ctx, scanRef.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, ScanResult{Overdue: 2, Skipped: 2}, result)
	require.Len(t, notifier.created, 2)

	result, err = job.Run(ctx, scanRef.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, result.Reminded)
	require.Len(t, notifier.created, 4)
}

func TestOverdueScanReleasesKeyOnFailure(t *testing.T) {
	loan := overdueLoan(t)
	notifier := &stubNotifier{err: errors.New("db down")}
	keys := memoryKeys{}
	job := newScanJob(&stubLister{loans: []*loans.Loan{loan}}, notifier, keys)

	_, err := job.Run(context.Background(), scanRef)
	require.Error(t, err)
	require.Empty(t, keys)

	notifier.err = nil
	result, err := job.Run(context.Background(), scanRef)
	require.NoError(t, err)
	require.Equal(t, 1, result.Reminded)
}

func TestOverdueScanHandleUsesPayloadRef(t *testing.T) {
	lister := &stubLister{}
	job := newScanJob(lister, &stubNotifier{}, memoryKeys{})

	task, err := NewOverdueScanTask()
	require.NoError(t, err)
	require.Equal(t, TaskOverdueScan, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, scanRef, lister.ref)

	body, err := json.Marshal(OverdueScanPayload{Ref: "2024-07-01T00:00:00Z"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskOverdueScan, body)))
	require.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), lister.ref)

	err = job.Handle(context.Background(), asynq.NewTask(TaskOverdueScan, []byte(`{"ref":"soon"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestOverdueScanPropagatesListError(t *testing.T) {
	boom := errors.New("boom")
	job := newScanJob(&stubLister{err: boom}, &stubNotifier{}, memoryKeys{})
	_, err := job.Run(context.Background(), scanRef)
	require.ErrorIs(t, err, boom)
}

type stubDeliverer struct {
	ids []uuid.UUID
	err error
}

func (s *stubDeliverer) Deliver(_ context.Context, id uuid.UUID) (*notifications.Notification, error) {
	s.ids = append(s.ids, id)
	if s.err != nil {
		return nil, s.err
	}
	return &notifications.Notification{ID: id}, nil
}

func TestNotificationDeliverJob(t *testing.T) {
	deliverer := &stubDeliverer{}
	job := NewNotificationDeliverJob(deliverer, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	id := uuid.New()

	task, err := NewNotificationDeliverTask(id)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []uuid.UUID{id}, deliverer.ids)

	err = job.Handle(context.Background(), asynq.NewTask(TaskNotificationDeliver, []byte(`{}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	deliverer.err = notifications.ErrNotificationNotFound
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	transient := errors.New("timeout")
	deliverer.err = transient
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, transient)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		name      string
		inspector QueueInspector
		code      int
		body      string
	}{
		{name: "no inspector", code: http.StatusOK, body: `{"queue":"default","pending":0,"active":0,"retry":0}`},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Active: 1}}, code: http.StatusOK, body: `{"queue":"default","pending":3,"active":1,"retry":0}`},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial")}, code: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, logger).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				require.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}
