package events

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/metrics"
)

type Notifier interface {
	NotifyUser(ctx context.Context, n Notification) error
	NotifyRole(ctx context.Context, n Notification) error
}

type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type Publisher interface {
	Publish(ctx context.Context, env PayloadEnvelope) error
}

// Dispatcher delivers a committed operation's List to the sinks. Every entry
// is attempted; failures are logged and counted but never undo the operation.
type Dispatcher struct {
	notifier  Notifier
	auditor   Auditor
	publisher Publisher
	logg      *logger.Logger
	metrics   *metrics.LendingMetrics
}

type DispatcherParams struct {
	Notifier Notifier
	Auditor  Auditor
	// Publisher is optional.
	Publisher Publisher
	Logger    *logger.Logger
	Metrics   *metrics.LendingMetrics
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Auditor == nil {
		return nil, fmt.Errorf("auditor required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		notifier:  p.Notifier,
		auditor:   p.Auditor,
		publisher: p.Publisher,
		logg:      p.Logger,
		metrics:   p.Metrics,
	}, nil
}

// Dispatch returns the combined sink errors for callers that want them;
// request handlers ignore the result.
func (d *Dispatcher) Dispatch(ctx context.Context, list List) error {
	if d == nil || list.Empty() {
		return nil
	}
	// detach from request cancellation so a client hang-up does not drop
	// notifications for an operation that already committed
	ctx = context.WithoutCancel(ctx)

	var errs error
	for _, entry := range list.Audits {
		if err := d.auditor.Record(ctx, entry); err != nil {
			errs = multierr.Append(errs, d.fail(ctx, "audit", err))
		}
	}
	for _, n := range list.Notifications {
		var err error
		if n.Broadcast() {
			err = d.notifier.NotifyRole(ctx, n)
		} else {
			err = d.notifier.NotifyUser(ctx, n)
		}
		if err != nil {
			errs = multierr.Append(errs, d.fail(ctx, "notify", err))
		}
	}
	if d.publisher != nil {
		for _, evt := range list.Domain {
			env, err := NewEnvelope(evt)
			if err == nil {
				err = d.publisher.Publish(ctx, env)
			}
			if err != nil {
				errs = multierr.Append(errs, d.fail(ctx, "publish", err))
			}
		}
	}
	return errs
}

func (d *Dispatcher) fail(ctx context.Context, sink string, err error) error {
	d.metrics.IncSinkFailure(sink)
	d.logg.Error(d.logg.WithField(ctx, "sink", sink), "post-commit side effect failed", err)
	return fmt.Errorf("%s: %w", sink, err)
}
