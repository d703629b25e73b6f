// Package audit stores and lists the activity log.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type ListFilter struct {
	Action      enums.AuditAction
	EntityTable string
	UserID      *uuid.UUID
	Limit       int
	Cursor      string
}

type EntryView struct {
	ID          uuid.UUID         `json:"id"`
	UserID      *uuid.UUID        `json:"user_id,omitempty"`
	UserName    string            `json:"user_name,omitempty"`
	Action      enums.AuditAction `json:"action"`
	EntityTable string            `json:"entity_table"`
	EntityID    *uuid.UUID        `json:"entity_id,omitempty"`
	Detail      string            `json:"detail"`
	CreatedAt   time.Time         `json:"created_at"`
}

func NewEntryView(row models.ActivityLog) EntryView {
	v := EntryView{
		ID:          row.ID,
		UserID:      row.UserID,
		Action:      row.Action,
		EntityTable: row.EntityTable,
		EntityID:    row.EntityID,
		Detail:      row.Detail,
		CreatedAt:   row.CreatedAt,
	}
	if row.User != nil {
		v.UserName = row.User.Name
	}
	return v
}

type Service interface {
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[EntryView], error)
	Latest(ctx context.Context, n int) ([]EntryView, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	// Record satisfies events.Auditor.
	Record(ctx context.Context, entry events.AuditEntry) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, entry events.AuditEntry) error {
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid audit action %q", entry.Action)
	}
	return s.repo.Create(ctx, &models.ActivityLog{
		UserID:      entry.ActorID,
		Action:      entry.Action,
		EntityTable: entry.EntityTable,
		EntityID:    entry.EntityID,
		Detail:      entry.Detail,
	})
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[EntryView], error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid action %q", filter.Action)
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listParams{
		Action:      filter.Action,
		EntityTable: filter.EntityTable,
		UserID:      filter.UserID,
		Limit:       filter.Limit,
		Cursor:      cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity logs")
	}
	views := make([]EntryView, 0, len(rows))
	for _, row := range rows {
		views = append(views, NewEntryView(row))
	}
	page := pagination.Trim(views, filter.Limit, func(v EntryView) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return &page, nil
}

func (s *service) Latest(ctx context.Context, n int) ([]EntryView, error) {
	rows, err := s.repo.Latest(ctx, n)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "latest activity logs")
	}
	views := make([]EntryView, 0, len(rows))
	for _, row := range rows {
		views = append(views, NewEntryView(row))
	}
	return views, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete activity log")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "activity log not found")
	}
	return nil
}
