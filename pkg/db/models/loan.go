package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Loan is a borrower's request for a quantity of one equipment item.
type Loan struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	BorrowerID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Borrower       *User            `gorm:"foreignKey:BorrowerID"`
	EquipmentID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Equipment      *Equipment       `gorm:"foreignKey:EquipmentID"`
	Quantity       int              `gorm:"not null;check:loans_quantity_check,quantity >= 1"`
	StartDate      time.Time        `gorm:"column:start_date;type:date;not null"`
	DueDate        time.Time        `gorm:"column:due_date;type:date;not null"`
	Status         enums.LoanStatus `gorm:"type:text;not null;default:pending;index"`
	Note           *string          `gorm:"type:text"`
	StaffID        *uuid.UUID       `gorm:"column:staff_id;type:uuid"`
	DecidedAt      *time.Time       `gorm:"column:decided_at"`
	LastRemindedAt *time.Time       `gorm:"column:last_reminded_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Loan) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// EquipmentName is safe to call when the relation was not preloaded.
func (l *Loan) EquipmentName() string {
	if l == nil || l.Equipment == nil {
		return ""
	}
	return l.Equipment.Name
}

func (l *Loan) BorrowerName() string {
	if l == nil || l.Borrower == nil {
		return ""
	}
	return l.Borrower.Name
}
