package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers the equipment catalogue: admin edits and the inventory view.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input EquipmentInput) (*Result, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input EquipmentInput) (*Result, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*EquipmentView, error)
	Inventory(ctx context.Context, actor auth.Actor, filter ListFilter) (*Inventory, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger *Ledger
}

func NewService(repo Repository, tx txRunner, ledger *Ledger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input EquipmentInput) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	item, err := s.ledger.NewEquipment(input.fields())
	if err != nil {
		return nil, err
	}

	var out Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create equipment")
		}
		created, err := repo.FindByID(ctx, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload equipment")
		}
		out.Equipment = NewEquipmentView(created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Events.Audit(actor.ID, enums.AuditCreate, "equipment", item.ID, "new equipment: "+item.Name)
	out.Events.NotifyRole(enums.RoleBorrower, enums.NotificationEquipmentAdded,
		"New Equipment Available",
		fmt.Sprintf("New equipment %q has been added and is available to borrow.", item.Name),
		"/equipment")
	out.Events.Emit(events.DomainEvent{
		Type:          "equipment.created",
		AggregateType: "equipment",
		AggregateID:   item.ID,
		Actor:         &events.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          out.Equipment,
	})
	return &out, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input EquipmentInput) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment id required")
	}

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ledger.SetManualFields(ctx, tx, id, input.fields()); err != nil {
			return err
		}
		updated, err := s.repo.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload equipment")
		}
		out.Equipment = NewEquipmentView(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Events.Audit(actor.ID, enums.AuditUpdate, "equipment", id, "updated equipment: "+out.Equipment.Name)
	out.Events.Emit(events.DomainEvent{
		Type:          "equipment.updated",
		AggregateType: "equipment",
		AggregateID:   id,
		Actor:         &events.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          out.Equipment,
	})
	return &out, nil
}

// Delete refuses while any loan references the item: loans still holding
// units would lose their reservation and finished loans keep their history.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment id required")
	}

	var out Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
		}
		refs, err := repo.CountLoans(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count equipment loans")
		}
		if refs.Holding > 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "%s has %d active loan(s)", item.Name, refs.Holding)
		}
		if refs.Total > 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "%s has loan history and cannot be deleted", item.Name)
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete equipment")
		}
		out.Equipment = NewEquipmentView(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Events.Audit(actor.ID, enums.AuditDelete, "equipment", id, "deleted equipment: "+out.Equipment.Name)
	return &out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*EquipmentView, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}
	view := NewEquipmentView(item)
	return &view, nil
}

// Inventory lists equipment with per-status tallies.
func (s *service) Inventory(ctx context.Context, actor auth.Actor, filter ListFilter) (*Inventory, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid equipment status %q", filter.Status)
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list equipment")
	}

	out := &Inventory{Items: make([]EquipmentView, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, NewEquipmentView(&items[i]))
		out.TotalUnits += items[i].TotalAvailable
		switch items[i].AvailabilityStatus {
		case enums.EquipmentStatusAvailable:
			out.AvailableItems++
		case enums.EquipmentStatusLoanedOut:
			out.LoanedOutItems++
		case enums.EquipmentStatusDamaged:
			out.DamagedItems++
		}
	}
	return out, nil
}
