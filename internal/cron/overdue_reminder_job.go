package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
)

const defaultReminderBatch = 200

type OverdueReminderJobParams struct {
	Logger     *logger.Logger
	Loans      overdueReminder
	Dispatcher eventDispatcher
	BatchSize  int
}

type overdueReminder interface {
	RemindOverdue(ctx context.Context, now time.Time, limit int) (*loans.ReminderBatch, error)
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, list events.List) error
}

// NewOverdueReminderJob builds the job that notifies borrowers whose loans
// are past due. A loan is reminded at most once per calendar day.
func NewOverdueReminderJob(params OverdueReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loans == nil {
		return nil, fmt.Errorf("loans service required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReminderBatch
	}
	return &overdueReminderJob{
		logg:       params.Logger,
		loans:      params.Loans,
		dispatcher: params.Dispatcher,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type overdueReminderJob struct {
	logg       *logger.Logger
	loans      overdueReminder
	dispatcher eventDispatcher
	batch      int
	now        func() time.Time
}

func (j *overdueReminderJob) Name() string { return "overdue-reminder" }

func (j *overdueReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	total := 0
	for {
		out, err := j.loans.RemindOverdue(ctx, now, j.batch)
		if err != nil {
			return fmt.Errorf("overdue reminder: %w", err)
		}
		if err := j.dispatcher.Dispatch(ctx, out.Events); err != nil {
			j.logg.Warn(ctx, "overdue reminder dispatch incomplete: "+err.Error())
		}
		total += out.Reminded
		// reminded loans drop out of the next query, so a short batch means done
		if out.Reminded < j.batch {
			break
		}
	}
	logCtx := j.logg.WithField(ctx, "reminded", total)
	j.logg.Info(logCtx, "overdue reminder complete")
	return nil
}
