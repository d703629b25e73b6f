package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
)

// DeriveStatus is the only place availability status is computed. A damaged
// item stays damaged whatever its count; otherwise any stock means available
// and an empty shelf can never read as available.
func DeriveStatus(count int, desired enums.EquipmentStatus) enums.EquipmentStatus {
	if desired == enums.EquipmentStatusDamaged {
		return enums.EquipmentStatusDamaged
	}
	if count > 0 {
		return enums.EquipmentStatusAvailable
	}
	return enums.EquipmentStatusLoanedOut
}

// Ledger owns every write to equipment.total_available and
// equipment.availability_status. All methods run on the caller's transaction.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// ManualFields is the admin edit form for one equipment row.
type ManualFields struct {
	Name        string
	CategoryID  *uuid.UUID
	Description *string
	Quantity    int
	Status      enums.EquipmentStatus
}

func (f ManualFields) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "equipment name is required")
	}
	if f.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or more")
	}
	if f.Status != "" && !f.Status.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid equipment status %q", f.Status)
	}
	return nil
}

// Reserve takes qty units out of stock. The check and the decrement are one
// conditional UPDATE so concurrent reservations cannot oversell.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID, qty int) (*models.Equipment, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reservation")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE equipment
		SET total_available = total_available - ?,
			updated_at = ?
		WHERE id = ? AND availability_status = ? AND total_available >= ?
	`, qty, l.now(), equipmentID, enums.EquipmentStatusAvailable, qty)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		item, err := l.load(ctx, tx, equipmentID)
		if err != nil {
			return nil, err
		}
		if item.AvailabilityStatus != enums.EquipmentStatusAvailable {
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "%s is not available for loan", item.Name)
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "only %d unit(s) of %s available", item.TotalAvailable, item.Name)
	}
	return l.settle(ctx, tx, equipmentID)
}

// Release puts qty units back on the shelf. qty == 0 is a no-op apart from
// the status recompute.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID, qty int) (*models.Equipment, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be zero or more")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}
	if qty > 0 {
		res := tx.WithContext(ctx).Exec(`
			UPDATE equipment
			SET total_available = total_available + ?,
				updated_at = ?
			WHERE id = ?
		`, qty, l.now(), equipmentID)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
		}
		if res.RowsAffected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
		}
	}
	return l.settle(ctx, tx, equipmentID)
}

// Recompute re-derives the stored status from the current count.
func (l *Ledger) Recompute(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID) (*models.Equipment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory recompute")
	}
	return l.settle(ctx, tx, equipmentID)
}

// SetManualFields overwrites an item from the admin form. The stored status
// is DeriveStatus(quantity, desired), so asking for available with zero
// stock stores loaned_out.
func (l *Ledger) SetManualFields(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID, fields ManualFields) (*models.Equipment, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for equipment update")
	}

	res := tx.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ?", equipmentID).
		UpdateColumns(map[string]any{
			"name":                strings.TrimSpace(fields.Name),
			"category_id":         fields.CategoryID,
			"description":         fields.Description,
			"total_available":     fields.Quantity,
			"availability_status": DeriveStatus(fields.Quantity, fields.Status),
			"updated_at":          l.now(),
		})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update equipment")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
	}
	return l.load(ctx, tx, equipmentID)
}

// NewEquipment builds a row from the admin form with its derived status.
func (l *Ledger) NewEquipment(fields ManualFields) (*models.Equipment, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}
	return &models.Equipment{
		Name:               strings.TrimSpace(fields.Name),
		CategoryID:         fields.CategoryID,
		Description:        fields.Description,
		TotalAvailable:     fields.Quantity,
		AvailabilityStatus: DeriveStatus(fields.Quantity, fields.Status),
	}, nil
}

func (l *Ledger) settle(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID) (*models.Equipment, error) {
	item, err := l.load(ctx, tx, equipmentID)
	if err != nil {
		return nil, err
	}
	derived := DeriveStatus(item.TotalAvailable, item.AvailabilityStatus)
	if derived == item.AvailabilityStatus {
		return item, nil
	}
	if err := tx.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ?", equipmentID).
		UpdateColumn("availability_status", derived).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update equipment status")
	}
	item.AvailabilityStatus = derived
	return item, nil
}

func (l *Ledger) load(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID) (*models.Equipment, error) {
	var item models.Equipment
	if err := tx.WithContext(ctx).First(&item, "id = ?", equipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}
	return &item, nil
}
