package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
)

// Sink stores post-commit notifications. A role notification becomes one row
// per user holding the role at delivery time.
type Sink struct {
	repo Repository
}

func NewSink(repo Repository) (*Sink, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &Sink{repo: repo}, nil
}

func (s *Sink) NotifyUser(ctx context.Context, n events.Notification) error {
	if n.UserID == uuid.Nil {
		return fmt.Errorf("notification %s has no recipient", n.Type)
	}
	row := toModel(n, n.UserID)
	return s.repo.Create(ctx, &row)
}

func (s *Sink) NotifyRole(ctx context.Context, n events.Notification) error {
	if n.Role == "" {
		return fmt.Errorf("notification %s has no role", n.Type)
	}
	ids, err := s.repo.UserIDsByRole(ctx, n.Role)
	if err != nil {
		return fmt.Errorf("resolve %s recipients: %w", n.Role, err)
	}
	rows := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, toModel(n, id))
	}
	return s.repo.CreateBatch(ctx, rows)
}

func toModel(n events.Notification, userID uuid.UUID) models.Notification {
	row := models.Notification{
		UserID:  userID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
	}
	if n.Link != "" {
		link := n.Link
		row.Link = &link
	}
	return row
}
