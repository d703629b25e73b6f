package fines

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
)

// Totals are the raw sums over returns carrying a positive fine.
type Totals struct {
	Assessed      decimal.Decimal
	UnpaidSplit   decimal.Decimal
	UnpaidReturns int64
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Totals covers every fined return; UnpaidSplit only counts rows whose
	// split already lives in columns.
	Totals(ctx context.Context) (Totals, error)
	// LegacyUnpaid lists fined, unstamped rows that may still carry a paid
	// marker in their notes.
	LegacyUnpaid(ctx context.Context) ([]models.Return, error)
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

func (r *repositoryImpl) Totals(ctx context.Context) (Totals, error) {
	var (
		out      Totals
		assessed decimal.NullDecimal
		unpaid   decimal.NullDecimal
	)
	row := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Select(`COALESCE(SUM(fine), 0),
			COALESCE(SUM(CASE WHEN fine_paid_at IS NULL AND good_count IS NOT NULL THEN fine ELSE 0 END), 0),
			COUNT(CASE WHEN fine_paid_at IS NULL THEN 1 END)`).
		Where("fine > 0").
		Row()
	if err := row.Scan(&assessed, &unpaid, &out.UnpaidReturns); err != nil {
		return Totals{}, err
	}
	out.Assessed = assessed.Decimal
	out.UnpaidSplit = unpaid.Decimal
	return out, nil
}

func (r *repositoryImpl) LegacyUnpaid(ctx context.Context) ([]models.Return, error) {
	var rows []models.Return
	err := r.db.WithContext(ctx).
		Preload("Loan").
		Where("fine > 0 AND fine_paid_at IS NULL AND good_count IS NULL").
		Find(&rows).Error
	return rows, err
}
