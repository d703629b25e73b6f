package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/money"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

// SubmitInput is the borrower's claim of how the units came back.
type SubmitInput struct {
	LoanID     uuid.UUID
	ReturnedAt time.Time
	Split      Split
	Notes      string
}

type SetFineInput struct {
	ReturnID uuid.UUID
	Amount   decimal.Decimal
	Reason   string
}

// ConfirmInput may carry a fine and reason to apply in the same step.
type ConfirmInput struct {
	ReturnID uuid.UUID
	Fine     *decimal.Decimal
	Reason   string
}

// ListFilter narrows listReturns. Borrowers only ever see their own.
type ListFilter struct {
	LoanStatus enums.LoanStatus
	BorrowerID *uuid.UUID
	UnpaidOnly bool
	Limit      int
	Cursor     string
}

type ReturnView struct {
	ID            uuid.UUID             `json:"id"`
	LoanID        uuid.UUID             `json:"loan_id"`
	LoanStatus    enums.LoanStatus      `json:"loan_status"`
	BorrowerID    uuid.UUID             `json:"borrower_id"`
	BorrowerName  string                `json:"borrower_name,omitempty"`
	EquipmentID   uuid.UUID             `json:"equipment_id"`
	EquipmentName string                `json:"equipment_name,omitempty"`
	Quantity      int                   `json:"quantity"`
	ReturnedAt    time.Time             `json:"returned_at"`
	Condition     enums.ReturnCondition `json:"condition"`
	Split         Split                 `json:"split"`
	Notes         string                `json:"notes,omitempty"`
	Annotation    string                `json:"annotation"`
	Fine          decimal.Decimal       `json:"fine"`
	FineDisplay   string                `json:"fine_display"`
	FineReason    string                `json:"fine_reason,omitempty"`
	Paid          bool                  `json:"paid"`
	FinePaidAt    *time.Time            `json:"fine_paid_at,omitempty"`
	StaffID       *uuid.UUID            `json:"staff_id,omitempty"`
	ConfirmedAt   *time.Time            `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// NewReturnView expects ret.Loan to be loaded; Loan.Equipment and
// Loan.Borrower are optional.
func NewReturnView(ret *models.Return) ReturnView {
	view := ReturnView{
		ID:          ret.ID,
		LoanID:      ret.LoanID,
		ReturnedAt:  ret.ReturnedAt,
		Condition:   ret.Condition,
		Fine:        ret.Fine,
		FineDisplay: money.FormatRupiah(ret.Fine),
		FinePaidAt:  ret.FinePaidAt,
		StaffID:     ret.StaffID,
		ConfirmedAt: ret.ConfirmedAt,
		CreatedAt:   ret.CreatedAt,
		UpdatedAt:   ret.UpdatedAt,
	}
	qty := 0
	if loan := ret.Loan; loan != nil {
		qty = loan.Quantity
		view.LoanStatus = loan.Status
		view.BorrowerID = loan.BorrowerID
		view.BorrowerName = loan.BorrowerName()
		view.EquipmentID = loan.EquipmentID
		view.EquipmentName = loan.EquipmentName()
		view.Quantity = loan.Quantity
	}
	rec := Resolve(ret, qty)
	view.Split = rec.Split
	view.Notes = rec.Notes
	view.FineReason = rec.FineReason
	view.Paid = rec.Paid
	view.Annotation = Annotate(rec)
	return view
}

func returnCursor(v ReturnView) pagination.Cursor {
	return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
}

// Result carries the updated return and post-commit side effects.
type Result struct {
	Return ReturnView
	Events events.List
}
