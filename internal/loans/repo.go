package loans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

// Repository is the only writer of loans.status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	List(ctx context.Context, params listParams) ([]models.Loan, error)
	// Transition moves a loan to `to` only while it is in one of `from`.
	// It reports false when no row matched, which callers treat as a lost race
	// or a stale precondition.
	Transition(ctx context.Context, id uuid.UUID, from []enums.LoanStatus, to enums.LoanStatus, decidedBy *uuid.UUID, at time.Time) (bool, error)
	Overwrite(ctx context.Context, id uuid.UUID, input OverrideInput, at time.Time) error
	HasReturn(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListOverdue(ctx context.Context, today time.Time, limit int) ([]models.Loan, error)
	MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type listParams struct {
	Status      enums.LoanStatus
	BorrowerID  *uuid.UUID
	EquipmentID *uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).
		Preload("Borrower").
		Preload("Equipment").
		First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Loan, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Preload("Borrower").
		Preload("Equipment")
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.BorrowerID != nil {
		query = query.Where("borrower_id = ?", *params.BorrowerID)
	}
	if params.EquipmentID != nil {
		query = query.Where("equipment_id = ?", *params.EquipmentID)
	}

	var rows []models.Loan
	if err := query.Scopes(pagination.Scope(params.Cursor, "", params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from []enums.LoanStatus, to enums.LoanStatus, decidedBy *uuid.UUID, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if decidedBy != nil {
		updates["staff_id"] = *decidedBy
		updates["decided_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) Overwrite(ctx context.Context, id uuid.UUID, input OverrideInput, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"borrower_id":  input.BorrowerID,
			"equipment_id": input.EquipmentID,
			"quantity":     input.Quantity,
			"start_date":   input.StartDate,
			"due_date":     input.DueDate,
			"status":       input.Status,
			"note":         input.Note,
			"updated_at":   at,
		}).Error
}

func (r *repositoryImpl) HasReturn(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("loan_id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Loan{}, "id = ?", id).Error
}

// ListOverdue returns borrowed loans past their due date that have not been
// reminded since today began.
func (r *repositoryImpl) ListOverdue(ctx context.Context, today time.Time, limit int) ([]models.Loan, error) {
	var rows []models.Loan
	err := r.db.WithContext(ctx).
		Preload("Equipment").
		Where("status IN ?", []enums.LoanStatus{enums.LoanStatusApproved, enums.LoanStatusBorrowed}).
		Where("due_date < ?", today).
		Where("last_reminded_at IS NULL OR last_reminded_at < ?", today).
		Order("due_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id IN ?", ids).
		UpdateColumn("last_reminded_at", at).Error
}
