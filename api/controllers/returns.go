package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/api/validators"
	"github.com/sarpraslab/peminjaman-backend/internal/fines"
	"github.com/sarpraslab/peminjaman-backend/internal/returns"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type submitReturnRequest struct {
	LoanID     uuid.UUID  `json:"loan_id" validate:"required"`
	ReturnedAt *time.Time `json:"returned_at"`
	Good       int        `json:"good"`
	Damaged    int        `json:"damaged"`
	Lost       int        `json:"lost"`
	Notes      string     `json:"notes" validate:"max=2000"`
}

type setFineRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Reason string           `json:"reason" validate:"max=1000"`
}

type confirmReturnRequest struct {
	Fine   *decimal.Decimal `json:"fine"`
	Reason string           `json:"reason" validate:"max=1000"`
}

// ReturnSubmit is the borrower's submitReturn.
func ReturnSubmit(svc returns.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body submitReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := returns.SubmitInput{
			LoanID: body.LoanID,
			Split:  returns.Split{Good: body.Good, Damaged: body.Damaged, Lost: body.Lost},
			Notes:  body.Notes,
		}
		if body.ReturnedAt != nil {
			input.ReturnedAt = *body.ReturnedAt
		}

		result, err := svc.Submit(r.Context(), actor, input)
		if err != nil {
			hooks.failed(r.Context(), "submit_return", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "submit_return", nil, result.Events)
		responses.WriteCreated(w, result.Return)
	}
}

// ReturnList reads loan_status, borrower_id, unpaid, limit and cursor.
func ReturnList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		filter := returns.ListFilter{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		var err error
		if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("loan_status")); raw != "" {
			status, err := enums.ParseLoanStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid loan_status"))
				return
			}
			filter.LoanStatus = status
		}
		if filter.BorrowerID, err = validators.ParseQueryUUID(r, "borrower_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.UnpaidOnly, err = validators.ParseQueryBool(r, "unpaid"); err != nil {
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

func ReturnGet(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "returnID")
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

func ReturnSetFine(svc returns.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setFineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Amount == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "fine amount is required"))
			return
		}

		result, err := svc.SetFine(r.Context(), actor, returns.SetFineInput{ReturnID: id, Amount: *body.Amount, Reason: body.Reason})
		if err != nil {
			hooks.failed(r.Context(), "set_fine", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "set_fine", nil, result.Events)
		responses.WriteSuccess(w, result.Return)
	}
}

// ReturnConfirm accepts an optional inline fine.
func ReturnConfirm(svc returns.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body confirmReturnRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Confirm(r.Context(), actor, returns.ConfirmInput{ReturnID: id, Fine: body.Fine, Reason: body.Reason})
		if err != nil {
			hooks.failed(r.Context(), "confirm_return", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "confirm_return", nil, result.Events)
		responses.WriteSuccess(w, result.Return)
	}
}

func ReturnMarkPaid(svc returns.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.MarkPaid(r.Context(), actor, id)
		if err != nil {
			hooks.failed(r.Context(), "mark_paid", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "mark_paid", nil, result.Events)
		responses.WriteSuccess(w, result.Return)
	}
}

func ReturnDelete(svc returns.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "returns")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Delete(r.Context(), actor, id)
		if err != nil {
			hooks.failed(r.Context(), "delete_return", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "delete_return", nil, result.Events)
		w.WriteHeader(http.StatusNoContent)
	}
}

// FinesOutstanding reports the unpaid fine total.
func FinesOutstanding(svc fines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "fines")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		summary, err := svc.TotalOutstanding(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
