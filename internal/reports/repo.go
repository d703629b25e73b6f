package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Counts are the headline numbers shown on dashboards.
type Counts struct {
	Users           int64 `json:"users"`
	Equipment       int64 `json:"equipment"`
	Categories      int64 `json:"categories"`
	PendingLoans    int64 `json:"pending_loans"`
	AwaitingReturns int64 `json:"awaiting_returns"`
}

type Repository interface {
	Counts(ctx context.Context) (Counts, error)
	LatestLoans(ctx context.Context, n int, borrowerID *uuid.UUID, statuses []enums.LoanStatus) ([]models.Loan, error)
	LatestReturns(ctx context.Context, n int, borrowerID *uuid.UUID) ([]models.Return, error)
	LoansBetween(ctx context.Context, from, to *time.Time, status enums.LoanStatus) ([]models.Loan, error)
	ReturnsForLoans(ctx context.Context, loanIDs []uuid.UUID) ([]models.Return, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := r.db.WithContext(ctx)
	steps := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&c.Users, db.Model(&models.User{})},
		{&c.Equipment, db.Model(&models.Equipment{})},
		{&c.Categories, db.Model(&models.Category{})},
		{&c.PendingLoans, db.Model(&models.Loan{}).Where("status = ?", enums.LoanStatusPending)},
		{&c.AwaitingReturns, db.Model(&models.Loan{}).Where("status = ?", enums.LoanStatusAwaitingReturnCheck)},
	}
	for _, step := range steps {
		if err := step.query.Count(step.dst).Error; err != nil {
			return Counts{}, err
		}
	}
	return c, nil
}

func (r *repositoryImpl) LatestLoans(ctx context.Context, n int, borrowerID *uuid.UUID, statuses []enums.LoanStatus) ([]models.Loan, error) {
	query := r.db.WithContext(ctx).Preload("Borrower").Preload("Equipment")
	if borrowerID != nil {
		query = query.Where("borrower_id = ?", *borrowerID)
	}
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.Loan
	err := query.Order("created_at DESC, id DESC").Limit(n).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) LatestReturns(ctx context.Context, n int, borrowerID *uuid.UUID) ([]models.Return, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Joins("JOIN loans ON loans.id = returns.loan_id").
		Preload("Loan").
		Preload("Loan.Equipment").
		Preload("Loan.Borrower")
	if borrowerID != nil {
		query = query.Where("loans.borrower_id = ?", *borrowerID)
	}
	var rows []models.Return
	err := query.Select("returns.*").
		Order("returns.created_at DESC, returns.id DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

// LoansBetween filters on the loan start date, inclusive on both ends.
func (r *repositoryImpl) LoansBetween(ctx context.Context, from, to *time.Time, status enums.LoanStatus) ([]models.Loan, error) {
	query := r.db.WithContext(ctx).Preload("Borrower").Preload("Equipment")
	if from != nil {
		query = query.Where("start_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("start_date <= ?", *to)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.Loan
	err := query.Order("start_date DESC, created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ReturnsForLoans(ctx context.Context, loanIDs []uuid.UUID) ([]models.Return, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}
	var rows []models.Return
	err := r.db.WithContext(ctx).Where("loan_id IN ?", loanIDs).Find(&rows).Error
	return rows, err
}
