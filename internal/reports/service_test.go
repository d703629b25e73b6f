package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sarpraslab/peminjaman-backend/internal/audit"
	"github.com/sarpraslab/peminjaman-backend/internal/fines"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/dbtest"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
)

type fixture struct {
	client   *db.Client
	svc      Service
	admin    auth.Actor
	staff    auth.Actor
	borrower auth.Actor
	other    auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	fineSvc, err := fines.NewService(fines.NewRepository(client.DB()))
	require.NoError(t, err)
	auditSvc, err := audit.NewService(audit.NewRepository(client.DB()))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), fineSvc, auditSvc)
	require.NoError(t, err)

	actor := func(name string, role enums.Role) auth.Actor {
		return auth.Actor{ID: dbtest.SeedUser(t, client, name, role).ID, Role: role}
	}
	return &fixture{
		client:   client,
		svc:      svc,
		admin:    actor("root", enums.RoleAdmin),
		staff:    actor("sari", enums.RoleStaff),
		borrower: actor("budi", enums.RoleBorrower),
		other:    actor("ani", enums.RoleBorrower),
	}
}

func (f *fixture) seedReturn(t *testing.T, loan *models.Loan, good, damaged int, fine string, paid bool) {
	t.Helper()
	lost := 0
	ret := &models.Return{
		LoanID:       loan.ID,
		ReturnedAt:   time.Now().UTC(),
		Condition:    enums.ConditionGood,
		GoodCount:    &good,
		DamagedCount: &damaged,
		LostCount:    &lost,
		Fine:         decimal.RequireFromString(fine),
	}
	if paid {
		now := time.Now().UTC()
		ret.FinePaidAt = &now
	}
	require.NoError(t, f.client.DB().Create(ret).Error)
}

func TestDashboardsAreRoleScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := dbtest.SeedEquipment(t, f.client, "Kamera", 3, enums.EquipmentStatusAvailable)
	dbtest.SeedLoan(t, f.client, f.borrower.ID, item.ID, 1, enums.LoanStatusPending)
	dbtest.SeedLoan(t, f.client, f.other.ID, item.ID, 1, enums.LoanStatusApproved)
	returned := dbtest.SeedLoan(t, f.client, f.borrower.ID, item.ID, 2, enums.LoanStatusReturned)
	f.seedReturn(t, returned, 1, 1, "30000", false)

	admin, err := f.svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	require.EqualValues(t, 4, admin.Counts.Users)
	require.EqualValues(t, 1, admin.Counts.PendingLoans)
	require.NotNil(t, admin.Fines)
	require.Equal(t, "Rp 30.000", admin.Fines.OutstandingDisplay)
	require.Len(t, admin.LatestLoans, 3)
	require.Len(t, admin.LatestReturns, 1)

	staff, err := f.svc.Dashboard(ctx, f.staff)
	require.NoError(t, err)
	require.Nil(t, staff.Fines)
	require.Zero(t, staff.Counts.Users)
	require.EqualValues(t, 1, staff.Counts.PendingLoans)

	mine, err := f.svc.Dashboard(ctx, f.borrower)
	require.NoError(t, err)
	require.EqualValues(t, 1, mine.Counts.Equipment)
	require.Len(t, mine.LatestLoans, 1)
	require.Equal(t, enums.LoanStatusPending, mine.LatestLoans[0].Status)
	require.Len(t, mine.LatestReturns, 1)

	theirs, err := f.svc.Dashboard(ctx, f.other)
	require.NoError(t, err)
	require.Len(t, theirs.LatestLoans, 1)
	require.Empty(t, theirs.LatestReturns)
}

func TestLoanReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := dbtest.SeedEquipment(t, f.client, "Tripod", 5, enums.EquipmentStatusAvailable)
	dbtest.SeedLoan(t, f.client, f.borrower.ID, item.ID, 1, enums.LoanStatusPending)
	dbtest.SeedLoan(t, f.client, f.borrower.ID, item.ID, 1, enums.LoanStatusRejected)
	paid := dbtest.SeedLoan(t, f.client, f.other.ID, item.ID, 2, enums.LoanStatusReturned)
	f.seedReturn(t, paid, 1, 1, "20000", true)
	owed := dbtest.SeedLoan(t, f.client, f.other.ID, item.ID, 3, enums.LoanStatusReturned)
	f.seedReturn(t, owed, 2, 1, "45000", false)

	report, err := f.svc.LoanReport(ctx, f.staff, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 4)
	require.Equal(t, 4, report.Summary.Total)
	require.Equal(t, 2, report.Summary.Returned)
	require.Equal(t, 1, report.Summary.Pending)
	require.Equal(t, 1, report.Summary.Rejected)
	require.Equal(t, "Rp 45.000", report.Summary.Display)

	returnedOnly, err := f.svc.LoanReport(ctx, f.admin, ReportFilter{Status: enums.LoanStatusReturned})
	require.NoError(t, err)
	require.Len(t, returnedOnly.Rows, 2)
	for _, row := range returnedOnly.Rows {
		require.NotNil(t, row.ReturnedGood)
	}

	future := time.Now().UTC().AddDate(0, 1, 0)
	empty, err := f.svc.LoanReport(ctx, f.staff, ReportFilter{From: &future})
	require.NoError(t, err)
	require.Empty(t, empty.Rows)

	past := time.Now().UTC().AddDate(0, -1, 0)
	_, err = f.svc.LoanReport(ctx, f.staff, ReportFilter{From: &future, To: &past})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.LoanReport(ctx, f.borrower, ReportFilter{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}
