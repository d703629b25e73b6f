package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Equipment is a lendable item. TotalAvailable and AvailabilityStatus move
// together and are only written through the inventory ledger.
type Equipment struct {
	ID                 uuid.UUID             `gorm:"type:uuid;primaryKey"`
	Name               string                `gorm:"type:text;not null"`
	CategoryID         *uuid.UUID            `gorm:"type:uuid;index"`
	Category           *Category             `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Description        *string               `gorm:"type:text"`
	TotalAvailable     int                   `gorm:"column:total_available;not null;default:0;check:equipment_total_available_check,total_available >= 0"`
	AvailabilityStatus enums.EquipmentStatus `gorm:"column:availability_status;type:text;not null;default:available"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Equipment) TableName() string { return "equipment" }

func (e *Equipment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
