package controllers

import (
	"net/http"
	"strings"

	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/api/validators"
	"github.com/sarpraslab/peminjaman-backend/internal/audit"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

// ActivityLogList filters by action, table and user_id.
func ActivityLogList(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "audit")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		q := r.URL.Query()
		filter := audit.ListFilter{
			Action:      enums.AuditAction(strings.ToUpper(strings.TrimSpace(q.Get("action")))),
			EntityTable: strings.TrimSpace(q.Get("table")),
			Cursor:      strings.TrimSpace(q.Get("cursor")),
		}
		var err error
		if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.UserID, err = validators.ParseQueryUUID(r, "user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ActivityLogDelete(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "audit")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "logID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
