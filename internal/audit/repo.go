package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, params listParams) ([]models.ActivityLog, error)
	Latest(ctx context.Context, n int) ([]models.ActivityLog, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type listParams struct {
	Action      enums.AuditAction
	EntityTable string
	UserID      *uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
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

func (r *repositoryImpl) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.ActivityLog, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Preload("User")
	if params.Action != "" {
		query = query.Where("action = ?", params.Action)
	}
	if params.EntityTable != "" {
		query = query.Where("entity_table = ?", params.EntityTable)
	}
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}

	var rows []models.ActivityLog
	if err := query.Scopes(pagination.Scope(params.Cursor, "", params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) Latest(ctx context.Context, n int) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.ActivityLog{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}
