package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
)

// EquipmentInput is the admin create/update form.
type EquipmentInput struct {
	Name        string
	CategoryID  *uuid.UUID
	Description *string
	Quantity    int
	Status      enums.EquipmentStatus
}

func (in EquipmentInput) fields() ManualFields {
	return ManualFields{
		Name:        in.Name,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Quantity:    in.Quantity,
		Status:      in.Status,
	}
}

// EquipmentView is the API shape of one equipment row.
type EquipmentView struct {
	ID                 uuid.UUID             `json:"id"`
	Name               string                `json:"name"`
	CategoryID         *uuid.UUID            `json:"category_id,omitempty"`
	CategoryName       string                `json:"category_name,omitempty"`
	Description        *string               `json:"description,omitempty"`
	TotalAvailable     int                   `json:"total_available"`
	AvailabilityStatus enums.EquipmentStatus `json:"availability_status"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

func NewEquipmentView(item *models.Equipment) EquipmentView {
	view := EquipmentView{
		ID:                 item.ID,
		Name:               item.Name,
		CategoryID:         item.CategoryID,
		Description:        item.Description,
		TotalAvailable:     item.TotalAvailable,
		AvailabilityStatus: item.AvailabilityStatus,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
	if item.Category != nil {
		view.CategoryName = item.Category.Name
	}
	return view
}

// Inventory is the getEquipmentInventory read model.
type Inventory struct {
	Items          []EquipmentView `json:"items"`
	TotalUnits     int             `json:"total_units"`
	AvailableItems int             `json:"available_items"`
	LoanedOutItems int             `json:"loaned_out_items"`
	DamagedItems   int             `json:"damaged_items"`
}

// Result carries a mutated row and the side effects to dispatch after commit.
type Result struct {
	Equipment EquipmentView
	Events    events.List
}
