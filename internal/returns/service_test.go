package returns

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sarpraslab/peminjaman-backend/internal/inventory"
	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/dbtest"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
)

type fixture struct {
	client   *db.Client
	repo     Repository
	svc      Service
	borrower auth.Actor
	other    auth.Actor
	staff    auth.Actor
	admin    auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, loans.NewRepository(client.DB()), client, inventory.NewLedger())
	require.NoError(t, err)

	borrower := dbtest.SeedUser(t, client, "budi", enums.RoleBorrower)
	other := dbtest.SeedUser(t, client, "ani", enums.RoleBorrower)
	staff := dbtest.SeedUser(t, client, "sari", enums.RoleStaff)
	admin := dbtest.SeedUser(t, client, "root", enums.RoleAdmin)
	return &fixture{
		client:   client,
		repo:     repo,
		svc:      svc,
		borrower: auth.Actor{ID: borrower.ID, Role: enums.RoleBorrower},
		other:    auth.Actor{ID: other.ID, Role: enums.RoleBorrower},
		staff:    auth.Actor{ID: staff.ID, Role: enums.RoleStaff},
		admin:    auth.Actor{ID: admin.ID, Role: enums.RoleAdmin},
	}
}

// borrowed seeds an item whose every unit is out on one borrowed loan.
func (f *fixture) borrowed(t *testing.T, qty int) (*models.Equipment, *models.Loan) {
	t.Helper()
	item := dbtest.SeedEquipment(t, f.client, "Proyektor", 0, enums.EquipmentStatusLoanedOut)
	loan := dbtest.SeedLoan(t, f.client, f.borrower.ID, item.ID, qty, enums.LoanStatusBorrowed)
	return item, loan
}

func (f *fixture) submit(t *testing.T, loanID uuid.UUID, split Split, notes string) *Result {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), f.borrower, SubmitInput{LoanID: loanID, Split: split, Notes: notes})
	require.NoError(t, err)
	return res
}

func (f *fixture) loanStatus(t *testing.T, id uuid.UUID) enums.LoanStatus {
	t.Helper()
	var loan models.Loan
	require.NoError(t, f.client.DB().First(&loan, "id = ?", id).Error)
	return loan.Status
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) models.Equipment {
	t.Helper()
	var item models.Equipment
	require.NoError(t, f.client.DB().First(&item, "id = ?", id).Error)
	return item
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewServiceRequiresDependencies(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	loanRepo := loans.NewRepository(client.DB())

	_, err := NewService(nil, loanRepo, client, inventory.NewLedger())
	require.Error(t, err)
	_, err = NewService(repo, nil, client, inventory.NewLedger())
	require.Error(t, err)
	_, err = NewService(repo, loanRepo, nil, inventory.NewLedger())
	require.Error(t, err)
	_, err = NewService(repo, loanRepo, client, nil)
	require.Error(t, err)
}

func TestSubmitMovesLoanToAwaiting(t *testing.T) {
	f := newFixture(t)
	_, loan := f.borrowed(t, 5)

	res := f.submit(t, loan.ID, Split{Good: 5}, "")
	require.Equal(t, enums.LoanStatusAwaitingReturnCheck, res.Return.LoanStatus)
	require.Equal(t, Split{Good: 5}, res.Return.Split)
	require.Equal(t, enums.ConditionGood, res.Return.Condition)
	require.True(t, res.Return.Fine.IsZero())
	require.False(t, res.Return.ReturnedAt.IsZero())
	require.Equal(t, enums.LoanStatusAwaitingReturnCheck, f.loanStatus(t, loan.ID))

	require.Len(t, res.Events.NotificationsOf(enums.NotificationReturnSubmitted), 1)
	require.Empty(t, res.Events.NotificationsOf(enums.NotificationReturnDamagedOrLost))
	require.Len(t, res.Events.Audits, 1)
}

func TestSubmitRejectsBadClaims(t *testing.T) {
	f := newFixture(t)
	_, loan := f.borrowed(t, 5)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.borrower, SubmitInput{LoanID: loan.ID, Split: Split{Good: 2, Damaged: 2, Lost: 2}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeQuantityMismatch), "got %v", err)

	_, err = f.svc.Submit(ctx, f.borrower, SubmitInput{LoanID: loan.ID, Split: Split{}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyClaim), "got %v", err)

	_, err = f.svc.Submit(ctx, f.borrower, SubmitInput{LoanID: loan.ID, Split: Split{Good: 4, Damaged: 1}, Notes: "   "})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMissingReason), "got %v", err)

	_, err = f.svc.Submit(ctx, f.borrower, SubmitInput{LoanID: loan.ID, Split: Split{Good: 6, Lost: -1}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Submit(ctx, f.other, SubmitInput{LoanID: loan.ID, Split: Split{Good: 5}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.Submit(ctx, f.staff, SubmitInput{LoanID: loan.ID, Split: Split{Good: 5}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "got %v", err)

	require.Equal(t, enums.LoanStatusBorrowed, f.loanStatus(t, loan.ID))
	var count int64
	require.NoError(t, f.client.DB().Model(&models.Return{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSubmitRequiresReturnableLoan(t *testing.T) {
	f := newFixture(t)
	item := dbtest.SeedEquipment(t, f.client, "Kamera", 1, enums.EquipmentStatusAvailable)
	pending := dbtest.SeedLoan(t, f.client, f.borrower.ID, item.ID, 1, enums.LoanStatusPending)

	_, err := f.svc.Submit(context.Background(), f.borrower, SubmitInput{LoanID: pending.ID, Split: Split{Good: 1}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
}

func TestSubmitTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	_, loan := f.borrowed(t, 2)
	f.submit(t, loan.ID, Split{Good: 2}, "")

	_, err := f.svc.Submit(context.Background(), f.borrower, SubmitInput{LoanID: loan.ID, Split: Split{Good: 2}})
	// the loan already left borrowed, so the status guard answers first
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
	require.False(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicateReturn), "got %v", err)
}

func TestConcurrentSubmitsCreateOneReturn(t *testing.T) {
	f := newFixture(t)
	_, loan := f.borrowed(t, 1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), f.borrower, SubmitInput{LoanID: loan.ID, Split: Split{Good: 1}})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Return{}).Where("loan_id = ?", loan.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestConfirmDamagedRequiresFineThenRestocksGoodOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, loan := f.borrowed(t, 5)
	sub := f.submit(t, loan.ID, Split{Good: 3, Damaged: 2}, "dua lensa retak")
	require.Len(t, sub.Events.NotificationsOf(enums.NotificationReturnDamagedOrLost), 1)

	_, err := f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: sub.Return.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeFineRequired), "got %v", err)
	require.Equal(t, 0, f.stock(t, item.ID).TotalAvailable)

	_, err = f.svc.SetFine(ctx, f.staff, SetFineInput{ReturnID: sub.Return.ID, Amount: amount("50000")})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMissingReason), "got %v", err)

	fined, err := f.svc.SetFine(ctx, f.staff, SetFineInput{ReturnID: sub.Return.ID, Amount: amount("50000"), Reason: "lensa pecah"})
	require.NoError(t, err)
	require.True(t, fined.Return.Fine.Equal(amount("50000")))
	require.Equal(t, "Rp 50.000", fined.Return.FineDisplay)
	require.Len(t, fined.Events.NotificationsOf(enums.NotificationReturnFined), 1)

	confirmed, err := f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: sub.Return.ID})
	require.NoError(t, err)
	require.Equal(t, enums.LoanStatusReturned, confirmed.Return.LoanStatus)
	require.Equal(t, "lensa pecah", confirmed.Return.FineReason)
	require.NotNil(t, confirmed.Return.ConfirmedAt)
	require.Equal(t, f.staff.ID, *confirmed.Return.StaffID)

	stored := f.stock(t, item.ID)
	require.Equal(t, 3, stored.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusAvailable, stored.AvailabilityStatus)

	borrowerNotes := confirmed.Events.NotificationsOf(enums.NotificationReturnFined)
	require.NotEmpty(t, borrowerNotes)
	require.Equal(t, f.borrower.ID, borrowerNotes[0].UserID)
	require.Contains(t, borrowerNotes[0].Message, "Rp 50.000")

	_, err = f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: sub.Return.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
	require.Equal(t, 3, f.stock(t, item.ID).TotalAvailable)
}

func TestConfirmWithInlineFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, loan := f.borrowed(t, 2)
	sub := f.submit(t, loan.ID, Split{Good: 1, Lost: 1}, "tertinggal di bus")

	fine := amount("150000")
	_, err := f.svc.Confirm(ctx, f.admin, ConfirmInput{ReturnID: sub.Return.ID, Fine: &fine})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMissingReason), "got %v", err)

	res, err := f.svc.Confirm(ctx, f.admin, ConfirmInput{ReturnID: sub.Return.ID, Fine: &fine, Reason: "unit hilang"})
	require.NoError(t, err)
	require.True(t, res.Return.Fine.Equal(fine))
	require.Equal(t, Split{Good: 1, Lost: 1}, res.Return.Split)
	require.Equal(t, 1, f.stock(t, item.ID).TotalAvailable)
}

func TestConfirmAllGoodNeedsNoFine(t *testing.T) {
	f := newFixture(t)
	item, loan := f.borrowed(t, 3)
	sub := f.submit(t, loan.ID, Split{Good: 3}, "")

	res, err := f.svc.Confirm(context.Background(), f.staff, ConfirmInput{ReturnID: sub.Return.ID})
	require.NoError(t, err)
	require.Len(t, res.Events.NotificationsOf(enums.NotificationReturnConfirmed), 1)
	require.Equal(t, 3, f.stock(t, item.ID).TotalAvailable)

	_, err = f.svc.MarkPaid(context.Background(), f.staff, sub.Return.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoFineOwed), "got %v", err)
}

func TestConcurrentConfirmsCreditStockOnce(t *testing.T) {
	f := newFixture(t)
	item, loan := f.borrowed(t, 4)
	sub := f.submit(t, loan.ID, Split{Good: 4}, "")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Confirm(context.Background(), f.staff, ConfirmInput{ReturnID: sub.Return.ID})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
	require.Equal(t, 4, f.stock(t, item.ID).TotalAvailable)
}

func TestMarkPaidOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, loan := f.borrowed(t, 1)
	sub := f.submit(t, loan.ID, Split{Damaged: 1}, "retak")

	fine := amount("25000")
	_, err := f.svc.MarkPaid(ctx, f.staff, sub.Return.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	_, err = f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: sub.Return.ID, Fine: &fine, Reason: "servis"})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, f.staff, sub.Return.ID)
	require.NoError(t, err)
	require.True(t, paid.Return.Paid)
	require.NotNil(t, paid.Return.FinePaidAt)
	require.Contains(t, paid.Return.Annotation, "[Status Pembayaran: Lunas]")
	notes := paid.Events.NotificationsOf(enums.NotificationFinePaid)
	require.Len(t, notes, 1)
	require.Equal(t, f.borrower.ID, notes[0].UserID)

	_, err = f.svc.MarkPaid(ctx, f.staff, sub.Return.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyPaid), "got %v", err)

	_, err = f.svc.MarkPaid(ctx, f.borrower, sub.Return.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestSetFineToZeroClearsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, loan := f.borrowed(t, 1)
	sub := f.submit(t, loan.ID, Split{Damaged: 1}, "retak")
	fine := amount("10000")
	_, err := f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: sub.Return.ID, Fine: &fine, Reason: "servis"})
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, f.staff, sub.Return.ID)
	require.NoError(t, err)

	res, err := f.svc.SetFine(ctx, f.admin, SetFineInput{ReturnID: sub.Return.ID, Amount: decimal.Zero, Reason: "dibebaskan"})
	require.NoError(t, err)
	require.False(t, res.Return.Paid)
	require.Nil(t, res.Return.FinePaidAt)
	require.Empty(t, res.Events.NotificationsOf(enums.NotificationReturnFined))

	_, err = f.svc.SetFine(ctx, f.admin, SetFineInput{ReturnID: sub.Return.ID, Amount: amount("-1"), Reason: "x"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestLegacyReturnIsUpgradedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, loan := f.borrowed(t, 4)
	require.NoError(t, f.client.DB().Model(&models.Loan{}).Where("id = ?", loan.ID).
		Update("status", enums.LoanStatusAwaitingReturnCheck).Error)

	notes := "layar bergaris\n\n[Alasan Denda: panel LCD]"
	legacy := &models.Return{
		LoanID:     loan.ID,
		ReturnedAt: loan.StartDate,
		Condition:  enums.ReturnCondition("rusak"),
		Notes:      &notes,
		Fine:       amount("40000"),
	}
	require.NoError(t, f.client.DB().Create(legacy).Error)

	view, err := f.svc.Get(ctx, f.borrower, legacy.ID)
	require.NoError(t, err)
	require.Equal(t, Split{Damaged: 4}, view.Split)
	require.Equal(t, "panel LCD", view.FineReason)
	require.Equal(t, "layar bergaris", view.Notes)

	_, err = f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: legacy.ID})
	require.NoError(t, err)
	require.Equal(t, 0, f.stock(t, item.ID).TotalAvailable)

	stored, err := f.repo.FindByID(ctx, legacy.ID)
	require.NoError(t, err)
	require.True(t, stored.HasSplit())
	require.Equal(t, 4, *stored.DamagedCount)
	require.Equal(t, enums.ConditionDamaged, stored.Condition)
	require.Equal(t, "panel LCD", *stored.FineReason)
	require.Equal(t, "layar bergaris", *stored.Notes)
}

func TestLegacySplitTagOverQuantityRestocksNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, loan := f.borrowed(t, 2)
	require.NoError(t, f.client.DB().Model(&models.Loan{}).Where("id = ?", loan.ID).
		Update("status", enums.LoanStatusAwaitingReturnCheck).Error)

	notes := "[Detail Kondisi: Baik: 5, Rusak: 0, Hilang: 0]"
	legacy := &models.Return{
		LoanID:     loan.ID,
		ReturnedAt: loan.StartDate,
		Condition:  enums.ReturnCondition("hilang"),
		Notes:      &notes,
		Fine:       amount("150000"),
	}
	require.NoError(t, f.client.DB().Create(legacy).Error)

	_, err := f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: legacy.ID, Reason: "dua unit hilang"})
	require.NoError(t, err)
	require.Equal(t, 0, f.stock(t, item.ID).TotalAvailable)

	stored, err := f.repo.FindByID(ctx, legacy.ID)
	require.NoError(t, err)
	require.Equal(t, 2, *stored.LostCount)
	require.Equal(t, 0, *stored.GoodCount)
}

func TestLegacyPaidMarkerCountsAsPaid(t *testing.T) {
	f := newFixture(t)
	_, loan := f.borrowed(t, 1)
	require.NoError(t, f.client.DB().Model(&models.Loan{}).Where("id = ?", loan.ID).
		Update("status", enums.LoanStatusReturned).Error)

	notes := "[Alasan Denda: hilang]\n\n[Status Pembayaran: Lunas]"
	legacy := &models.Return{
		LoanID: loan.ID, ReturnedAt: loan.StartDate, Condition: enums.ReturnCondition("hilang"),
		Notes: &notes, Fine: amount("75000"),
	}
	require.NoError(t, f.client.DB().Create(legacy).Error)

	_, err := f.svc.MarkPaid(context.Background(), f.staff, legacy.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyPaid), "got %v", err)
}

func TestBackfillUpgradesLegacyRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, loan := f.borrowed(t, 3)
	notes := "[Detail Kondisi: Baik: 2, Rusak: 0, Hilang: 1]\n\n[Status Pembayaran: Lunas]"
	legacy := &models.Return{
		LoanID: loan.ID, ReturnedAt: loan.StartDate, Condition: enums.ConditionLost,
		Notes: &notes, Fine: amount("90000"),
	}
	require.NoError(t, f.client.DB().Create(legacy).Error)

	stats, err := Backfill(ctx, f.repo, nil, 10)
	require.NoError(t, err)
	require.Equal(t, BackfillStats{Scanned: 1, Upgraded: 1}, stats)

	stored, err := f.repo.FindByID(ctx, legacy.ID)
	require.NoError(t, err)
	require.True(t, stored.HasSplit())
	require.Equal(t, 2, *stored.GoodCount)
	require.Equal(t, 1, *stored.LostCount)
	require.NotNil(t, stored.FinePaidAt)
	require.Equal(t, "", *stored.Notes)

	stats, err = Backfill(ctx, f.repo, nil, 10)
	require.NoError(t, err)
	require.Zero(t, stats.Upgraded)
}

func TestDeleteRevertsLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, loan := f.borrowed(t, 1)
	sub := f.submit(t, loan.ID, Split{Good: 1}, "")

	_, err := f.svc.Delete(ctx, f.staff, sub.Return.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.Delete(ctx, f.admin, sub.Return.ID)
	require.NoError(t, err)
	require.Equal(t, enums.LoanStatusApproved, f.loanStatus(t, loan.ID))

	again := f.submit(t, loan.ID, Split{Good: 1}, "")
	_, err = f.svc.Confirm(ctx, f.staff, ConfirmInput{ReturnID: again.Return.ID})
	require.NoError(t, err)
	_, err = f.svc.Delete(ctx, f.admin, again.Return.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestListScopesBorrowers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, mine := f.borrowed(t, 1)
	f.submit(t, mine.ID, Split{Good: 1}, "")

	item := dbtest.SeedEquipment(t, f.client, "Speaker", 0, enums.EquipmentStatusLoanedOut)
	theirs := dbtest.SeedLoan(t, f.client, f.other.ID, item.ID, 1, enums.LoanStatusBorrowed)
	_, err := f.svc.Submit(ctx, f.other, SubmitInput{LoanID: theirs.ID, Split: Split{Lost: 1}, Notes: "hilang"})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.borrower, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, mine.ID, page.Items[0].LoanID)

	page, err = f.svc.List(ctx, f.staff, ListFilter{LoanStatus: enums.LoanStatusAwaitingReturnCheck})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	_, err = f.svc.Get(ctx, f.borrower, page.Items[0].ID)
	if page.Items[0].BorrowerID != f.borrower.ID {
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
	} else {
		require.NoError(t, err)
	}

	_, err = f.svc.List(ctx, f.staff, ListFilter{LoanStatus: "bogus"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}
