package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Return records what came back for a loan. The count columns are nil only
// on rows imported before the split was stored in columns; those rows carry
// the split inside Notes and are read through the returns compat decoder.
type Return struct {
	ID           uuid.UUID             `gorm:"type:uuid;primaryKey"`
	LoanID       uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:returns_loan_id_key"`
	Loan         *Loan                 `gorm:"foreignKey:LoanID"`
	ReturnedAt   time.Time             `gorm:"column:returned_at;not null"`
	Condition    enums.ReturnCondition `gorm:"column:condition_tag;type:text;not null"`
	GoodCount    *int                  `gorm:"column:good_count"`
	DamagedCount *int                  `gorm:"column:damaged_count"`
	LostCount    *int                  `gorm:"column:lost_count"`
	Notes        *string               `gorm:"type:text"`
	Fine         decimal.Decimal       `gorm:"type:numeric(12,2);not null;default:0"`
	FineReason   *string               `gorm:"column:fine_reason;type:text"`
	FinePaidAt   *time.Time            `gorm:"column:fine_paid_at"`
	StaffID      *uuid.UUID            `gorm:"column:staff_id;type:uuid"`
	ConfirmedAt  *time.Time            `gorm:"column:confirmed_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Return) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasSplit reports whether the structured condition columns are populated.
func (r *Return) HasSplit() bool {
	return r.GoodCount != nil && r.DamagedCount != nil && r.LostCount != nil
}
