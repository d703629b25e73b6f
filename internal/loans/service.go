package loans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryLedger is the slice of the inventory ledger loans depend on.
type InventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID, qty int) (*models.Equipment, error)
	Release(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID, qty int) (*models.Equipment, error)
	Recompute(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID) (*models.Equipment, error)
}

// Service is the loan state machine.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Result, error)
	Decide(ctx context.Context, actor auth.Actor, input DecisionInput) (*Result, error)
	AdminOverride(ctx context.Context, actor auth.Actor, id uuid.UUID, input OverrideInput) (*Result, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*LoanView, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[LoanView], error)
	RemindOverdue(ctx context.Context, now time.Time, limit int) (*ReminderBatch, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory InventoryLedger
	now       func() time.Time
}

func NewService(repo Repository, tx txRunner, inventory InventoryLedger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loans repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		inventory: inventory,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Result, error) {
	if err := actor.Require(enums.RoleBorrower); err != nil {
		return nil, err
	}
	if input.EquipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if err := validateDates(input.StartDate, input.DueDate); err != nil {
		return nil, err
	}

	loan := &models.Loan{
		BorrowerID:  actor.ID,
		EquipmentID: input.EquipmentID,
		Quantity:    input.Quantity,
		StartDate:   dateOnly(input.StartDate),
		DueDate:     dateOnly(input.DueDate),
		Status:      enums.LoanStatusPending,
		Note:        trimmedOrNil(input.Note),
	}

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.inventory.Reserve(ctx, tx, input.EquipmentID, input.Quantity); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan")
		}
		created, err := repo.FindByID(ctx, loan.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loan")
		}
		out.Loan = NewLoanView(created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("%s requested to borrow %q (%d unit(s)).",
		nameOr(out.Loan.BorrowerName, "A borrower"), nameOr(out.Loan.EquipmentName, "equipment"), loan.Quantity)
	out.Events.NotifyRole(enums.RoleStaff, enums.NotificationLoanRequested, "New Loan Request", message, "/loans?status=pending")
	out.Events.NotifyRole(enums.RoleAdmin, enums.NotificationLoanRequested, "New Loan Request", message, "/loans")
	out.Events.Audit(actor.ID, enums.AuditCreate, "loans", loan.ID,
		fmt.Sprintf("loan request: %s x%d", out.Loan.EquipmentName, loan.Quantity))
	out.Events.Emit(loanEvent("loan.requested", actor, out.Loan))
	return &out, nil
}

func (s *service) Decide(ctx context.Context, actor auth.Actor, input DecisionInput) (*Result, error) {
	if err := actor.Require(enums.RoleStaff, enums.RoleAdmin); err != nil {
		return nil, err
	}
	if input.LoanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	if input.Decision != enums.LoanDecisionApprove && input.Decision != enums.LoanDecisionReject {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid decision %q", input.Decision)
	}
	target := input.Decision.Status()

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := s.load(ctx, repo, input.LoanID)
		if err != nil {
			return err
		}
		if loan.Status != enums.LoanStatusPending {
			return invalidTransition(loan.Status, target)
		}

		moved, err := repo.Transition(ctx, loan.ID, []enums.LoanStatus{enums.LoanStatusPending}, target, actor.IDPtr(), s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loan status")
		}
		if !moved {
			return invalidTransition(loan.Status, target)
		}

		if target == enums.LoanStatusRejected {
			_, err = s.inventory.Release(ctx, tx, loan.EquipmentID, loan.Quantity)
		} else {
			_, err = s.inventory.Recompute(ctx, tx, loan.EquipmentID)
		}
		if err != nil {
			return err
		}

		updated, err := repo.FindByID(ctx, loan.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loan")
		}
		out.Loan = NewLoanView(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	equipment := nameOr(out.Loan.EquipmentName, "equipment")
	if target == enums.LoanStatusApproved {
		out.Events.NotifyUser(out.Loan.BorrowerID, enums.NotificationLoanApproved, "Loan Approved",
			fmt.Sprintf("Your loan of %q has been approved.", equipment), "/loans")
		out.Events.Audit(actor.ID, enums.AuditApprove, "loans", out.Loan.ID, "loan approved by "+string(actor.Role))
	} else {
		out.Events.NotifyUser(out.Loan.BorrowerID, enums.NotificationLoanRejected, "Loan Rejected",
			fmt.Sprintf("Your loan of %q has been rejected.", equipment), "/loans")
		out.Events.Audit(actor.ID, enums.AuditReject, "loans", out.Loan.ID, "loan rejected by "+string(actor.Role))
	}
	out.Events.Emit(loanEvent("loan."+string(target), actor, out.Loan))
	return &out, nil
}

// AdminOverride is the trusted full-form edit. It bypasses the transition
// rules and the inventory ledger entirely; the audit trail records the
// status jump.
func (s *service) AdminOverride(ctx context.Context, actor auth.Actor, id uuid.UUID, input OverrideInput) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	if input.BorrowerID == uuid.Nil || input.EquipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrower id and equipment id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid loan status %q", input.Status)
	}
	if err := validateDates(input.StartDate, input.DueDate); err != nil {
		return nil, err
	}
	input.StartDate = dateOnly(input.StartDate)
	input.DueDate = dateOnly(input.DueDate)
	input.Note = trimmedOrNil(input.Note)

	var (
		out    Result
		before enums.LoanStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		before = loan.Status
		if err := s.ensureReferences(ctx, tx, input); err != nil {
			return err
		}
		if err := repo.Overwrite(ctx, id, input, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "overwrite loan")
		}
		updated, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loan")
		}
		out.Loan = NewLoanView(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Events.Audit(actor.ID, enums.AuditUpdate, "loans", id,
		fmt.Sprintf("admin override: status %s -> %s", before, input.Status))
	out.Events.Emit(loanEvent("loan.overridden", actor, out.Loan))
	return &out, nil
}

// Delete removes a loan that has no return record. Units still reserved for
// it go back on the shelf.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		hasReturn, err := repo.HasReturn(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check loan return")
		}
		if hasReturn {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan has a return record; delete the return first")
		}
		if loan.Status.HoldsReservation() {
			if _, err := s.inventory.Release(ctx, tx, loan.EquipmentID, loan.Quantity); err != nil {
				return err
			}
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete loan")
		}
		out.Loan = NewLoanView(loan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Events.Audit(actor.ID, enums.AuditDelete, "loans", id,
		fmt.Sprintf("deleted loan of %s (%s)", out.Loan.EquipmentName, out.Loan.Status))
	return &out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*LoanView, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	loan, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.IsBorrower() && loan.BorrowerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
	}
	view := NewLoanView(loan)
	return &view, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[LoanView], error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid loan status %q", filter.Status)
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	params := listParams{
		Status:      filter.Status,
		BorrowerID:  filter.BorrowerID,
		EquipmentID: filter.EquipmentID,
		Limit:       filter.Limit,
		Cursor:      cursor,
	}
	if actor.IsBorrower() {
		params.BorrowerID = actor.IDPtr()
	}

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}
	views := make([]LoanView, 0, len(rows))
	for i := range rows {
		views = append(views, NewLoanView(&rows[i]))
	}
	page := pagination.Trim(views, filter.Limit, loanCursor)
	return &page, nil
}

// RemindOverdue marks up to limit overdue loans as reminded today and
// returns one borrower notification per loan.
func (s *service) RemindOverdue(ctx context.Context, now time.Time, limit int) (*ReminderBatch, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	today := dateOnly(now)

	var out ReminderBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.ListOverdue(ctx, today, limit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue loans")
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for i := range rows {
			loan := &rows[i]
			ids = append(ids, loan.ID)
			days := int(today.Sub(dateOnly(loan.DueDate)).Hours() / 24)
			out.Events.NotifyUser(loan.BorrowerID, enums.NotificationLoanOverdue, "Loan Overdue",
				fmt.Sprintf("Your loan of %q was due on %s (%d day(s) ago). Please return it.",
					nameOr(loan.EquipmentName(), "equipment"), loan.DueDate.Format(DateLayout), days),
				"/returns/new?loan_id="+loan.ID.String())
		}
		if err := repo.MarkReminded(ctx, ids, now.UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark loans reminded")
		}
		out.Reminded = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Loan, error) {
	loan, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
	}
	return loan, nil
}

func (s *service) ensureReferences(ctx context.Context, tx *gorm.DB, input OverrideInput) error {
	var borrower models.User
	if err := tx.WithContext(ctx).Select("id", "role").First(&borrower, "id = ?", input.BorrowerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "borrower not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load borrower")
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Equipment{}).Where("id = ?", input.EquipmentID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
	}
	return nil
}

func invalidTransition(from, to enums.LoanStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "loan cannot move from %s to %s", from, to)
}

func validateDates(start, due time.Time) error {
	if start.IsZero() || due.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date and due date are required")
	}
	if dateOnly(due).Before(dateOnly(start)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "due date must not be before start date")
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func loanEvent(typ string, actor auth.Actor, view LoanView) events.DomainEvent {
	return events.DomainEvent{
		Type:          typ,
		AggregateType: "loan",
		AggregateID:   view.ID,
		Actor:         &events.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          view,
	}
}
