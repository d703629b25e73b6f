package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/money"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryReleaser credits good units back on confirmation.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID, qty int) (*models.Equipment, error)
}

// Service is the return reconciliation engine plus the fine sub-ledger writes.
type Service interface {
	Submit(ctx context.Context, actor auth.Actor, input SubmitInput) (*Result, error)
	SetFine(ctx context.Context, actor auth.Actor, input SetFineInput) (*Result, error)
	Confirm(ctx context.Context, actor auth.Actor, input ConfirmInput) (*Result, error)
	MarkPaid(ctx context.Context, actor auth.Actor, returnID uuid.UUID) (*Result, error)
	Delete(ctx context.Context, actor auth.Actor, returnID uuid.UUID) (*Result, error)
	Get(ctx context.Context, actor auth.Actor, returnID uuid.UUID) (*ReturnView, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[ReturnView], error)
}

type service struct {
	repo      Repository
	loans     loans.Repository
	tx        txRunner
	inventory InventoryReleaser
	now       func() time.Time
}

func NewService(repo Repository, loanRepo loans.Repository, tx txRunner, inventory InventoryReleaser) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if loanRepo == nil {
		return nil, fmt.Errorf("loans repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	return &service{
		repo:      repo,
		loans:     loanRepo,
		tx:        tx,
		inventory: inventory,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, actor auth.Actor, input SubmitInput) (*Result, error) {
	if err := actor.Require(enums.RoleBorrower); err != nil {
		return nil, err
	}
	if input.LoanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	split := input.Split
	if split.Good < 0 || split.Damaged < 0 || split.Lost < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit counts must be zero or more")
	}
	notes := strings.TrimSpace(input.Notes)
	now := s.now()
	returnedAt := input.ReturnedAt
	if returnedAt.IsZero() {
		returnedAt = now
	}

	var (
		out Result
		ret *models.Return
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loanRepo := s.loans.WithTx(tx)
		repo := s.repo.WithTx(tx)

		loan, err := loanRepo.FindByID(ctx, input.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		if loan.BorrowerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		if !loan.Status.CanSubmitReturn() {
			return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "a return cannot be submitted for a %s loan", loan.Status)
		}
		exists, err := repo.ExistsForLoan(ctx, loan.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing return")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "a return for this loan has already been submitted")
		}
		if split.Total() == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyClaim, "at least one unit must be accounted for")
		}
		if split.Total() != loan.Quantity {
			return pkgerrors.Newf(pkgerrors.CodeQuantityMismatch,
				"good, damaged and lost must add up to the %d unit(s) borrowed", loan.Quantity).
				WithDetails(map[string]int{"expected": loan.Quantity, "got": split.Total()})
		}
		if split.HasLoss() && notes == "" {
			return pkgerrors.New(pkgerrors.CodeMissingReason, "describe what happened to the damaged or lost units")
		}

		ret = &models.Return{
			LoanID:       loan.ID,
			ReturnedAt:   returnedAt.UTC(),
			Condition:    split.Headline(),
			GoodCount:    intPtr(split.Good),
			DamagedCount: intPtr(split.Damaged),
			LostCount:    intPtr(split.Lost),
			Fine:         decimal.Zero,
		}
		if notes != "" {
			ret.Notes = &notes
		}
		if err := repo.Create(ctx, ret); err != nil {
			if db.IsUniqueViolation(err, "returns_loan_id_key", "returns.loan_id") {
				return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "a return for this loan has already been submitted")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}

		moved, err := loanRepo.Transition(ctx, loan.ID,
			[]enums.LoanStatus{enums.LoanStatusApproved, enums.LoanStatusBorrowed},
			enums.LoanStatusAwaitingReturnCheck, nil, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loan status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "loan changed while submitting the return")
		}

		view, err := s.reload(ctx, repo, ret.ID)
		if err != nil {
			return err
		}
		out.Return = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := out.Return
	borrower, equipment := nameOr(v.BorrowerName, "A borrower"), nameOr(v.EquipmentName, "equipment")
	out.Events.NotifyRole(enums.RoleStaff, enums.NotificationReturnSubmitted, "New Return Submitted",
		fmt.Sprintf("%s submitted a return for %q (%s).", borrower, equipment, split.Describe()),
		"/returns?loan_status="+string(enums.LoanStatusAwaitingReturnCheck))
	if split.HasLoss() {
		out.Events.NotifyRole(enums.RoleAdmin, enums.NotificationReturnDamagedOrLost, "Return With Damage or Loss",
			fmt.Sprintf("%s submitted a return for %q with condition: %s.", borrower, equipment, split.Describe()),
			"/returns")
	}
	out.Events.Audit(actor.ID, enums.AuditCreate, "returns", v.ID,
		fmt.Sprintf("return submitted: %s", split.Describe()))
	out.Events.Emit(returnEvent("return.submitted", actor, v))
	return &out, nil
}

func (s *service) SetFine(ctx context.Context, actor auth.Actor, input SetFineInput) (*Result, error) {
	if err := actor.Require(enums.RoleStaff, enums.RoleAdmin); err != nil {
		return nil, err
	}
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine must be zero or more")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingReason, "a fine reason is required")
	}
	amount := input.Amount.Round(2)

	var (
		out   Result
		prior decimal.Decimal
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := s.load(ctx, repo, input.ReturnID)
		if err != nil {
			return err
		}
		status := ret.Loan.Status
		if status != enums.LoanStatusAwaitingReturnCheck && status != enums.LoanStatusReturned {
			return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "fines cannot be set on a %s loan", status)
		}
		prior = ret.Fine

		changes := Changes{Fine: &amount, FineReason: &reason, At: s.now()}
		upgradeLegacy(&changes, ret)
		if amount.IsZero() {
			changes.ClearPaid = true
		}
		if err := repo.Update(ctx, ret.ID, changes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set fine")
		}
		view, err := s.reload(ctx, repo, ret.ID)
		if err != nil {
			return err
		}
		out.Return = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := out.Return
	out.Events.Audit(actor.ID, enums.AuditUpdate, "returns", v.ID,
		fmt.Sprintf("set fine: %s, reason: %s", money.FormatRupiah(amount), reason))
	if amount.IsPositive() && !amount.Equal(prior) {
		out.Events.NotifyRole(enums.RoleAdmin, enums.NotificationReturnFined, "Borrower Fined",
			fmt.Sprintf("%s was fined %s for returning %q.",
				nameOr(v.BorrowerName, "A borrower"), money.FormatRupiah(amount), nameOr(v.EquipmentName, "equipment")),
			"/returns")
	}
	out.Events.Emit(returnEvent("return.fine_set", actor, v))
	return &out, nil
}

// Confirm closes a return: the loan becomes returned and only good units go
// back to stock. The awaiting-confirmation check and the status flip are one
// conditional update, so a concurrent second confirm fails instead of
// crediting stock twice.
func (s *service) Confirm(ctx context.Context, actor auth.Actor, input ConfirmInput) (*Result, error) {
	if err := actor.Require(enums.RoleStaff, enums.RoleAdmin); err != nil {
		return nil, err
	}
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if input.Fine != nil && input.Fine.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine must be zero or more")
	}

	var (
		out  Result
		rec  Record
		fine decimal.Decimal
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := s.load(ctx, repo, input.ReturnID)
		if err != nil {
			return err
		}
		loan := ret.Loan
		if loan.Status != enums.LoanStatusAwaitingReturnCheck {
			return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "return is not awaiting confirmation (loan is %s)", loan.Status)
		}

		rec = Resolve(ret, loan.Quantity)
		fine = ret.Fine
		if input.Fine != nil {
			fine = input.Fine.Round(2)
		}
		if (rec.Split.HasLoss() || ret.Condition.RequiresFine()) && !fine.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeFineRequired, "fine is mandatory for damaged or lost condition before confirmation")
		}
		reason := strings.TrimSpace(input.Reason)
		if reason != "" {
			rec.FineReason = reason
		}
		if fine.IsPositive() && rec.FineReason == "" {
			return pkgerrors.New(pkgerrors.CodeMissingReason, "a fine reason is required when the fine is above zero")
		}

		now := s.now()
		moved, err := s.loans.WithTx(tx).Transition(ctx, loan.ID,
			[]enums.LoanStatus{enums.LoanStatusAwaitingReturnCheck}, enums.LoanStatusReturned, nil, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loan status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "return was already confirmed")
		}

		changes := Changes{
			Fine:        &fine,
			StaffID:     actor.IDPtr(),
			ConfirmedAt: &now,
			At:          now,
		}
		if rec.FineReason != "" {
			changes.FineReason = &rec.FineReason
		}
		upgradeLegacy(&changes, ret)
		if err := repo.Update(ctx, ret.ID, changes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm return")
		}

		if _, err := s.inventory.Release(ctx, tx, loan.EquipmentID, rec.Split.Good); err != nil {
			return err
		}

		view, err := s.reload(ctx, repo, ret.ID)
		if err != nil {
			return err
		}
		out.Return = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := out.Return
	split := rec.Split
	equipment := nameOr(v.EquipmentName, "equipment")
	borrower := nameOr(v.BorrowerName, "A borrower")

	out.Events.Audit(actor.ID, enums.AuditUpdate, "returns", v.ID,
		fmt.Sprintf("return confirmed: %d good restocked, %d damaged, %d lost. Fine: %s",
			split.Good, split.Damaged, split.Lost, money.FormatRupiah(fine)))

	message := fmt.Sprintf("Your return of %q has been confirmed.", equipment)
	if split.HasLoss() {
		message = fmt.Sprintf("Your return of %q has been confirmed. Condition: %s.", equipment, split.Describe())
	}
	if fine.IsPositive() {
		message += fmt.Sprintf(" You have been fined %s.", money.FormatRupiah(fine))
	}
	noteType := enums.NotificationReturnConfirmed
	if fine.IsPositive() || split.HasLoss() {
		noteType = enums.NotificationReturnFined
	}
	out.Events.NotifyUser(v.BorrowerID, noteType, "Return Confirmed", message, "/returns")

	if split.HasLoss() {
		loss := Split{Damaged: split.Damaged, Lost: split.Lost}
		out.Events.NotifyRole(enums.RoleAdmin, enums.NotificationReturnDamagedOrLost, "Return With Damage or Loss",
			fmt.Sprintf("%s returned %q with condition: %s.", borrower, equipment, loss.Describe()), "/returns")
	}
	if fine.IsPositive() {
		out.Events.NotifyRole(enums.RoleAdmin, enums.NotificationReturnFined, "Borrower Fined",
			fmt.Sprintf("%s was fined %s for returning %q.", borrower, money.FormatRupiah(fine), equipment), "/returns")
	}
	out.Events.Emit(returnEvent("return.confirmed", actor, v))
	return &out, nil
}

func (s *service) MarkPaid(ctx context.Context, actor auth.Actor, returnID uuid.UUID) (*Result, error) {
	if err := actor.Require(enums.RoleStaff, enums.RoleAdmin); err != nil {
		return nil, err
	}
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := s.load(ctx, repo, returnID)
		if err != nil {
			return err
		}
		if ret.Loan.Status != enums.LoanStatusReturned {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "the return must be confirmed before the fine can be marked paid")
		}
		if !ret.Fine.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeNoFineOwed, "there is no fine to settle")
		}
		rec := Resolve(ret, ret.Loan.Quantity)
		if rec.Paid {
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "the fine is already marked as paid")
		}

		now := s.now()
		if !ret.HasSplit() {
			changes := Changes{At: now}
			upgradeLegacy(&changes, ret)
			if err := repo.Update(ctx, ret.ID, changes); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upgrade legacy return")
			}
		}
		marked, err := repo.MarkPaid(ctx, ret.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark fine paid")
		}
		if !marked {
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "the fine is already marked as paid")
		}

		view, err := s.reload(ctx, repo, ret.ID)
		if err != nil {
			return err
		}
		out.Return = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := out.Return
	out.Events.Audit(actor.ID, enums.AuditUpdate, "returns", v.ID, "fine payment status: paid")
	out.Events.NotifyUser(v.BorrowerID, enums.NotificationFinePaid, "Fine Paid",
		fmt.Sprintf("Payment of the fine for returning %q has been confirmed.", nameOr(v.EquipmentName, "equipment")),
		"/returns")
	out.Events.Emit(returnEvent("return.fine_paid", actor, v))
	return &out, nil
}

// Delete withdraws a return that has not been confirmed yet; the loan goes
// back to approved so the borrower can submit again.
func (s *service) Delete(ctx context.Context, actor auth.Actor, returnID uuid.UUID) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := s.load(ctx, repo, returnID)
		if err != nil {
			return err
		}
		if ret.Loan.Status != enums.LoanStatusAwaitingReturnCheck {
			return pkgerrors.New(pkgerrors.CodeConflict, "confirmed returns cannot be deleted")
		}
		moved, err := s.loans.WithTx(tx).Transition(ctx, ret.LoanID,
			[]enums.LoanStatus{enums.LoanStatusAwaitingReturnCheck}, enums.LoanStatusApproved, nil, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revert loan status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "return was confirmed concurrently")
		}
		if err := repo.Delete(ctx, ret.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete return")
		}
		out.Return = NewReturnView(ret)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Events.Audit(actor.ID, enums.AuditDelete, "returns", returnID,
		fmt.Sprintf("deleted return for %s; loan reverted to approved", out.Return.EquipmentName))
	return &out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, returnID uuid.UUID) (*ReturnView, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	ret, err := s.load(ctx, s.repo, returnID)
	if err != nil {
		return nil, err
	}
	if actor.IsBorrower() && ret.Loan.BorrowerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
	}
	view := NewReturnView(ret)
	return &view, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[ReturnView], error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	if filter.LoanStatus != "" && !filter.LoanStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid loan status %q", filter.LoanStatus)
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params := listParams{
		LoanStatus: filter.LoanStatus,
		BorrowerID: filter.BorrowerID,
		UnpaidOnly: filter.UnpaidOnly,
		Limit:      filter.Limit,
		Cursor:     cursor,
	}
	if actor.IsBorrower() {
		params.BorrowerID = actor.IDPtr()
	}

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	views := make([]ReturnView, 0, len(rows))
	for i := range rows {
		views = append(views, NewReturnView(&rows[i]))
	}
	page := pagination.Trim(views, filter.Limit, returnCursor)
	return &page, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Return, error) {
	ret, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	if ret.Loan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found for return")
	}
	return ret, nil
}

func (s *service) reload(ctx context.Context, repo Repository, id uuid.UUID) (ReturnView, error) {
	ret, err := repo.FindByID(ctx, id)
	if err != nil {
		return ReturnView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload return")
	}
	return NewReturnView(ret), nil
}

// upgradeLegacy makes any write to an annotation-only row also persist its
// decoded split, reason and paid marker as columns.
func upgradeLegacy(changes *Changes, ret *models.Return) {
	if ret.HasSplit() || ret.Loan == nil {
		return
	}
	rec := Resolve(ret, ret.Loan.Quantity)
	changes.Split = &rec.Split
	changes.Notes = &rec.Notes
	if changes.FineReason == nil && rec.FineReason != "" {
		changes.FineReason = &rec.FineReason
	}
	if rec.Paid && ret.FinePaidAt == nil && !changes.ClearPaid {
		paidAt := ret.UpdatedAt
		changes.FinePaidAt = &paidAt
	}
}

func returnEvent(typ string, actor auth.Actor, view ReturnView) events.DomainEvent {
	return events.DomainEvent{
		Type:          typ,
		AggregateType: "return",
		AggregateID:   view.ID,
		Actor:         &events.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          view,
	}
}

func intPtr(v int) *int { return &v }

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
