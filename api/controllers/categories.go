package controllers

import (
	"net/http"

	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/api/validators"
	"github.com/sarpraslab/peminjaman-backend/internal/categories"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
)

func CategoryList(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "categories")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		views, err := svc.List(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

func CategoryCreate(svc categories.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "categories")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body categories.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "create_category", nil, result.Events)
		responses.WriteCreated(w, result.Category)
	}
}

func CategoryUpdate(svc categories.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "categories")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categories.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Update(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "update_category", nil, result.Events)
		responses.WriteSuccess(w, result.Category)
	}
}

func CategoryDelete(svc categories.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "categories")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Delete(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "delete_category", nil, result.Events)
		w.WriteHeader(http.StatusNoContent)
	}
}
