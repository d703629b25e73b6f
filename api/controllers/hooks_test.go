package controllers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/metrics"
)

type recordingDispatcher struct {
	lists []events.List
}

func (d *recordingDispatcher) Dispatch(_ context.Context, list events.List) error {
	d.lists = append(d.lists, list)
	return nil
}

func TestHooksFailedRecordsCodeWithoutDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	dispatcher := &recordingDispatcher{}
	hooks := Hooks{Dispatcher: dispatcher, Metrics: metrics.NewLendingMetrics(reg)}

	hooks.failed(context.Background(), "set_fine", pkgerrors.New(pkgerrors.CodeInvalidTransition, "not awaiting confirmation"))

	require.Empty(t, dispatcher.lists)
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var outcomes []string
	for _, mf := range mfs {
		if mf.GetName() != "peminjaman_transitions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					outcomes = append(outcomes, label.GetValue())
				}
			}
			require.Equal(t, float64(1), m.GetCounter().GetValue())
		}
	}
	require.Equal(t, []string{string(pkgerrors.CodeInvalidTransition)}, outcomes)
}

func TestHooksDoneDispatchesOnSuccess(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	hooks := Hooks{Dispatcher: dispatcher}

	var list events.List
	list.NotifyRole(enums.RoleStaff, enums.NotificationLoanRequested, "Pengajuan baru", "ada pengajuan", "/loans")
	list.Audit(uuid.New(), enums.AuditCreate, "loans", uuid.New(), "created")
	hooks.done(context.Background(), "create_loan", nil, list)

	require.Len(t, dispatcher.lists, 1)
	require.Len(t, dispatcher.lists[0].Notifications, 1)
	require.Len(t, dispatcher.lists[0].Audits, 1)
}
