package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID      *uuid.UUID        `gorm:"type:uuid;index"`
	User        *User             `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Action      enums.AuditAction `gorm:"type:text;not null"`
	EntityTable string            `gorm:"column:entity_table;type:text;not null"`
	EntityID    *uuid.UUID        `gorm:"column:entity_id;type:uuid"`
	Detail      string            `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
