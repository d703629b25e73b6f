// Package categories manages the equipment categories.
package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
)

type Input struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

type View struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	EquipmentCount int64     `json:"equipment_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type Result struct {
	Category View
	Events   events.List
}

type Service interface {
	List(ctx context.Context, actor auth.Actor) ([]View, error)
	Create(ctx context.Context, actor auth.Actor, input Input) (*Result, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input Input) (*Result, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	return &service{repo: repo}, nil
}

func newView(c *models.Category, count int64) View {
	v := View{ID: c.ID, Name: c.Name, EquipmentCount: count, CreatedAt: c.CreatedAt}
	if c.Description != nil {
		v.Description = *c.Description
	}
	return v
}

func (s *service) List(ctx context.Context, actor auth.Actor) ([]View, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]View, 0, len(rows))
	for i := range rows {
		out = append(out, newView(&rows[i].Category, rows[i].EquipmentCount))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input Input) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	c := &models.Category{Name: name, Description: input.Description}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, conflictOr(err, "create category")
	}
	out := &Result{Category: newView(c, 0)}
	out.Events.Audit(actor.ID, enums.AuditCreate, "categories", c.ID, "new category: "+name)
	return out, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input Input) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	found, err := s.repo.Update(ctx, id, map[string]any{"name": name, "description": input.Description})
	if err != nil {
		return nil, conflictOr(err, "update category")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload category")
	}
	out := &Result{Category: newView(c, 0)}
	out.Events.Audit(actor.ID, enums.AuditUpdate, "categories", id, "updated category: "+name)
	return out, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	out := &Result{Category: newView(c, 0)}
	out.Events.Audit(actor.ID, enums.AuditDelete, "categories", id, "deleted category: "+c.Name)
	return out, nil
}

func conflictOr(err error, msg string) error {
	if db.IsUniqueViolation(err, "categories_name_key", "categories.name") {
		return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
