package categories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context) ([]CategoryWithCount, error)
	Update(ctx context.Context, id uuid.UUID, columns map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// CategoryWithCount is a category plus how many equipment rows reference it.
type CategoryWithCount struct {
	models.Category
	EquipmentCount int64 `gorm:"column:equipment_count"`
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]CategoryWithCount, error) {
	var rows []CategoryWithCount
	err := r.db.WithContext(ctx).
		Table("categories").
		Select("categories.*, (SELECT COUNT(*) FROM equipment WHERE equipment.category_id = categories.id) AS equipment_count").
		Order("categories.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, columns map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(columns)
	return res.RowsAffected > 0, res.Error
}

// Delete detaches equipment from the category before removing it, matching
// the ON DELETE SET NULL foreign key on databases that do not enforce it.
func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Equipment{}).Where("category_id = ?", id).
			UpdateColumn("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, "id = ?", id)
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error
	return n, err
}
