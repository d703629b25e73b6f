// Package events carries the side effects an operation wants performed once
// its transaction has committed.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Notification targets either one user (UserID) or every user holding Role.
type Notification struct {
	UserID  uuid.UUID
	Role    enums.Role
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

func (n Notification) Broadcast() bool {
	return n.UserID == uuid.Nil && n.Role != ""
}

type AuditEntry struct {
	ActorID     *uuid.UUID
	Action      enums.AuditAction
	EntityTable string
	EntityID    *uuid.UUID
	Detail      string
}

// ActorRef identifies who produced a domain event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// DomainEvent is relayed to external subscribers when publishing is enabled.
type DomainEvent struct {
	Type          string
	AggregateType string
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// List accumulates side effects. The zero value is ready to use.
type List struct {
	Notifications []Notification
	Audits        []AuditEntry
	Domain        []DomainEvent
}

func (l *List) NotifyUser(userID uuid.UUID, typ enums.NotificationType, title, message, link string) {
	l.Notifications = append(l.Notifications, Notification{
		UserID: userID, Type: typ, Title: title, Message: message, Link: link,
	})
}

func (l *List) NotifyRole(role enums.Role, typ enums.NotificationType, title, message, link string) {
	l.Notifications = append(l.Notifications, Notification{
		Role: role, Type: typ, Title: title, Message: message, Link: link,
	})
}

func (l *List) Audit(actorID uuid.UUID, action enums.AuditAction, table string, entityID uuid.UUID, detail string) {
	entry := AuditEntry{Action: action, EntityTable: table, Detail: detail}
	if actorID != uuid.Nil {
		entry.ActorID = &actorID
	}
	if entityID != uuid.Nil {
		entry.EntityID = &entityID
	}
	l.Audits = append(l.Audits, entry)
}

func (l *List) Emit(evt DomainEvent) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	l.Domain = append(l.Domain, evt)
}

// Merge appends other's entries in order.
func (l *List) Merge(other List) {
	l.Notifications = append(l.Notifications, other.Notifications...)
	l.Audits = append(l.Audits, other.Audits...)
	l.Domain = append(l.Domain, other.Domain...)
}

func (l List) Empty() bool {
	return len(l.Notifications) == 0 && len(l.Audits) == 0 && len(l.Domain) == 0
}

// NotificationsOf filters the list by type; mostly useful in tests.
func (l List) NotificationsOf(typ enums.NotificationType) []Notification {
	var out []Notification
	for _, n := range l.Notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
