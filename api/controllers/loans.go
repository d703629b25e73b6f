package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/api/validators"
	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

type createLoanRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gte=1"`
	StartDate   string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	DueDate     string    `json:"due_date" validate:"required,datetime=2006-01-02"`
	Note        *string   `json:"note"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

type overrideLoanRequest struct {
	BorrowerID  uuid.UUID `json:"borrower_id" validate:"required"`
	EquipmentID uuid.UUID `json:"equipment_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gte=1"`
	StartDate   string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	DueDate     string    `json:"due_date" validate:"required,datetime=2006-01-02"`
	Status      string    `json:"status" validate:"required"`
	Note        *string   `json:"note"`
}

func parseDates(start, due string) (time.Time, time.Time, error) {
	s, err := time.Parse(loans.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start_date")
	}
	d, err := time.Parse(loans.DateLayout, due)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid due_date")
	}
	return s, d, nil
}

// LoanCreate is the borrower's createLoan.
func LoanCreate(svc loans.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loans")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body createLoanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, due, err := parseDates(body.StartDate, body.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actor, loans.CreateInput{
			EquipmentID: body.EquipmentID,
			Quantity:    body.Quantity,
			StartDate:   start,
			DueDate:     due,
			Note:        body.Note,
		})
		if err != nil {
			hooks.failed(r.Context(), "create_loan", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "create_loan", nil, result.Events)
		responses.WriteCreated(w, result.Loan)
	}
}

// LoanList reads status, borrower_id, equipment_id, limit and cursor from
// the query string.
func LoanList(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loans")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		filter := loans.ListFilter{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		var err error
		if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseLoanStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = status
		}
		if filter.BorrowerID, err = validators.ParseQueryUUID(r, "borrower_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.EquipmentID, err = validators.ParseQueryUUID(r, "equipment_id"); err != nil {
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

func LoanGet(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loans")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "loanID")
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

// LoanDecision approves or rejects a pending loan.
func LoanDecision(svc loans.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loans")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "loanID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body decisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParseLoanDecision(body.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		operation := string(decision) + "_loan"
		result, err := svc.Decide(r.Context(), actor, loans.DecisionInput{LoanID: id, Decision: decision})
		if err != nil {
			hooks.failed(r.Context(), operation, err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), operation, nil, result.Events)
		responses.WriteSuccess(w, result.Loan)
	}
}

// LoanOverride is the admin full-form edit; it never touches inventory.
func LoanOverride(svc loans.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loans")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "loanID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body overrideLoanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, due, err := parseDates(body.StartDate, body.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseLoanStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		result, err := svc.AdminOverride(r.Context(), actor, id, loans.OverrideInput{
			BorrowerID:  body.BorrowerID,
			EquipmentID: body.EquipmentID,
			Quantity:    body.Quantity,
			StartDate:   start,
			DueDate:     due,
			Status:      status,
			Note:        body.Note,
		})
		if err != nil {
			hooks.failed(r.Context(), "admin_override_loan", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "admin_override_loan", nil, result.Events)
		responses.WriteSuccess(w, result.Loan)
	}
}

func LoanDelete(svc loans.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loans")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "loanID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Delete(r.Context(), actor, id)
		if err != nil {
			hooks.failed(r.Context(), "delete_loan", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "delete_loan", nil, result.Events)
		w.WriteHeader(http.StatusNoContent)
	}
}
