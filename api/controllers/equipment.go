package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/api/validators"
	"github.com/sarpraslab/peminjaman-backend/internal/inventory"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
)

type equipmentRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Description *string    `json:"description"`
	Quantity    int        `json:"quantity" validate:"gte=0"`
	Status      string     `json:"status"`
}

func (req equipmentRequest) input() (inventory.EquipmentInput, error) {
	in := inventory.EquipmentInput{
		Name:        strings.TrimSpace(req.Name),
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Quantity:    req.Quantity,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := enums.ParseEquipmentStatus(req.Status)
		if err != nil {
			return in, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		in.Status = status
	}
	return in, nil
}

// EquipmentInventory lists equipment with the aggregate counts.
func EquipmentInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		filter := inventory.ListFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.CategoryID = categoryID
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseEquipmentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = status
		}

		result, err := svc.Inventory(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func EquipmentGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "equipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func EquipmentCreate(svc inventory.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body equipmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.input()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			hooks.failed(r.Context(), "create_equipment", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "create_equipment", nil, result.Events)
		responses.WriteCreated(w, result.Equipment)
	}
}

// EquipmentUpdate applies setManualFields.
func EquipmentUpdate(svc inventory.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "equipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body equipmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.input()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			hooks.failed(r.Context(), "set_manual_fields", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "set_manual_fields", nil, result.Events)
		responses.WriteSuccess(w, result.Equipment)
	}
}

func EquipmentDelete(svc inventory.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "equipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Delete(r.Context(), actor, id)
		if err != nil {
			hooks.failed(r.Context(), "delete_equipment", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "delete_equipment", nil, result.Events)
		w.WriteHeader(http.StatusNoContent)
	}
}
