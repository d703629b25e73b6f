package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Repository exposes equipment reads and the writes the ledger does not own.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Equipment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Equipment, error)
	List(ctx context.Context, filter ListFilter) ([]models.Equipment, error)
	CountLoans(ctx context.Context, id uuid.UUID) (LoanRefs, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ListFilter narrows the inventory listing.
type ListFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Status     enums.EquipmentStatus
}

// LoanRefs counts loans pointing at an equipment row.
type LoanRefs struct {
	Total   int64
	Holding int64
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

func (r *repositoryImpl) Create(ctx context.Context, item *models.Equipment) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	var item models.Equipment
	if err := r.db.WithContext(ctx).Preload("Category").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.Equipment, error) {
	query := r.db.WithContext(ctx).Model(&models.Equipment{}).Preload("Category")
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Status != "" {
		query = query.Where("availability_status = ?", filter.Status)
	}

	var items []models.Equipment
	if err := query.Order("name ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) CountLoans(ctx context.Context, id uuid.UUID) (LoanRefs, error) {
	var refs LoanRefs
	if err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("equipment_id = ?", id).
		Count(&refs.Total).Error; err != nil {
		return LoanRefs{}, err
	}
	if refs.Total == 0 {
		return refs, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("equipment_id = ? AND status IN ?", id, holdingStatuses()).
		Count(&refs.Holding).Error
	return refs, err
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Equipment{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func holdingStatuses() []enums.LoanStatus {
	return []enums.LoanStatus{
		enums.LoanStatusPending,
		enums.LoanStatusApproved,
		enums.LoanStatusBorrowed,
		enums.LoanStatusAwaitingReturnCheck,
	}
}
