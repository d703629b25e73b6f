package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.Return) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error)
	ExistsForLoan(ctx context.Context, loanID uuid.UUID) (bool, error)
	List(ctx context.Context, params listParams) ([]models.Return, error)
	Update(ctx context.Context, id uuid.UUID, changes Changes) error
	// MarkPaid stamps fine_paid_at only if it is still empty.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListUnsplit(ctx context.Context, limit int) ([]models.Return, error)
}

// Changes is a partial update; nil fields are left alone.
type Changes struct {
	Split       *Split
	Notes       *string
	Fine        *decimal.Decimal
	FineReason  *string
	ClearPaid   bool
	FinePaidAt  *time.Time
	StaffID     *uuid.UUID
	ConfirmedAt *time.Time
	At          time.Time
}

func (c Changes) columns() map[string]any {
	cols := map[string]any{"updated_at": c.At}
	if c.Split != nil {
		cols["good_count"] = c.Split.Good
		cols["damaged_count"] = c.Split.Damaged
		cols["lost_count"] = c.Split.Lost
		cols["condition_tag"] = c.Split.Headline()
	}
	if c.Notes != nil {
		cols["notes"] = *c.Notes
	}
	if c.Fine != nil {
		cols["fine"] = *c.Fine
	}
	if c.FineReason != nil {
		cols["fine_reason"] = *c.FineReason
	}
	if c.ClearPaid {
		cols["fine_paid_at"] = nil
	} else if c.FinePaidAt != nil {
		cols["fine_paid_at"] = *c.FinePaidAt
	}
	if c.StaffID != nil {
		cols["staff_id"] = *c.StaffID
	}
	if c.ConfirmedAt != nil {
		cols["confirmed_at"] = *c.ConfirmedAt
	}
	return cols
}

type listParams struct {
	LoanStatus enums.LoanStatus
	BorrowerID *uuid.UUID
	UnpaidOnly bool
	Limit      int
	Cursor     *pagination.Cursor
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

func (r *repositoryImpl) Create(ctx context.Context, ret *models.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	if err := r.db.WithContext(ctx).
		Preload("Loan").
		Preload("Loan.Equipment").
		Preload("Loan.Borrower").
		First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repositoryImpl) ExistsForLoan(ctx context.Context, loanID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Return{}).Where("loan_id = ?", loanID).Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Return, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Joins("JOIN loans ON loans.id = returns.loan_id").
		Preload("Loan").
		Preload("Loan.Equipment").
		Preload("Loan.Borrower")
	if params.LoanStatus != "" {
		query = query.Where("loans.status = ?", params.LoanStatus)
	}
	if params.BorrowerID != nil {
		query = query.Where("loans.borrower_id = ?", *params.BorrowerID)
	}
	if params.UnpaidOnly {
		query = query.Where("returns.fine > 0 AND returns.fine_paid_at IS NULL")
	}

	var rows []models.Return
	if err := query.
		Select("returns.*").
		Scopes(pagination.Scope(params.Cursor, "returns", params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, changes Changes) error {
	return r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ?", id).
		UpdateColumns(changes.columns()).Error
}

func (r *repositoryImpl) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ? AND fine_paid_at IS NULL AND fine > 0", id).
		UpdateColumns(map[string]any{"fine_paid_at": at, "updated_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Return{}, "id = ?", id).Error
}

// ListUnsplit returns rows still storing their split only in notes.
func (r *repositoryImpl) ListUnsplit(ctx context.Context, limit int) ([]models.Return, error) {
	var rows []models.Return
	err := r.db.WithContext(ctx).
		Preload("Loan").
		Where("good_count IS NULL OR damaged_count IS NULL OR lost_count IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
