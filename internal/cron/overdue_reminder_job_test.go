package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeReminder struct {
	// remaining overdue loans; each call drains up to limit
	remaining int
	calls     int
	lastNow   time.Time
	err       error
}

func (f *fakeReminder) RemindOverdue(ctx context.Context, now time.Time, limit int) (*loans.ReminderBatch, error) {
	f.calls++
	f.lastNow = now
	if f.err != nil {
		return nil, f.err
	}
	n := f.remaining
	if n > limit {
		n = limit
	}
	f.remaining -= n
	var out loans.ReminderBatch
	for i := 0; i < n; i++ {
		out.Events.NotifyUser(uuid.New(), enums.NotificationLoanOverdue, "Loan Overdue", "late", "")
	}
	out.Reminded = n
	return &out, nil
}

type recordingDispatcher struct {
	notifications int
	err           error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, list events.List) error {
	d.notifications += len(list.NotificationsOf(enums.NotificationLoanOverdue))
	return d.err
}

func newOverdueJob(t *testing.T, loansSvc overdueReminder, d eventDispatcher, batch int) *overdueReminderJob {
	t.Helper()
	job, err := NewOverdueReminderJob(OverdueReminderJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Loans:      loansSvc,
		Dispatcher: d,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	return job.(*overdueReminderJob)
}

func TestOverdueReminderJobDrainsInBatches(t *testing.T) {
	reminder := &fakeReminder{remaining: 5}
	dispatcher := &recordingDispatcher{}
	job := newOverdueJob(t, reminder, dispatcher, 2)
	fixed := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 3, reminder.calls)
	require.Equal(t, 5, dispatcher.notifications)
	require.Equal(t, fixed, reminder.lastNow)
}

func TestOverdueReminderJobNothingDue(t *testing.T) {
	reminder := &fakeReminder{}
	dispatcher := &recordingDispatcher{}
	job := newOverdueJob(t, reminder, dispatcher, 0)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, reminder.calls)
	require.Zero(t, dispatcher.notifications)
}

func TestOverdueReminderJobDispatchFailureIsNotFatal(t *testing.T) {
	reminder := &fakeReminder{remaining: 1}
	job := newOverdueJob(t, reminder, &recordingDispatcher{err: errors.New("sink down")}, 10)

	require.NoError(t, job.Run(context.Background()))
}

func TestOverdueReminderJobPropagatesServiceError(t *testing.T) {
	job := newOverdueJob(t, &fakeReminder{err: errors.New("db gone")}, &recordingDispatcher{}, 10)

	require.Error(t, job.Run(context.Background()))
}

func TestNewOverdueReminderJobRequiresDeps(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	_, err := NewOverdueReminderJob(OverdueReminderJobParams{Logger: logg, Dispatcher: &recordingDispatcher{}})
	require.Error(t, err)
	_, err = NewOverdueReminderJob(OverdueReminderJobParams{Logger: logg, Loans: &fakeReminder{}})
	require.Error(t, err)
}
