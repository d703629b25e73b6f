package loans

import (
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/pagination"
)

// DateLayout is the wire format for start and due dates.
const DateLayout = "2006-01-02"

// CreateInput is a borrower's loan request.
type CreateInput struct {
	EquipmentID uuid.UUID
	Quantity    int
	StartDate   time.Time
	DueDate     time.Time
	Note        *string
}

// DecisionInput carries a staff or admin verdict on a pending loan.
type DecisionInput struct {
	LoanID   uuid.UUID
	Decision enums.LoanDecision
}

// OverrideInput is the full admin edit form. It writes the row as given and
// never touches inventory.
type OverrideInput struct {
	BorrowerID  uuid.UUID
	EquipmentID uuid.UUID
	Quantity    int
	StartDate   time.Time
	DueDate     time.Time
	Status      enums.LoanStatus
	Note        *string
}

// ListFilter narrows listLoans. Borrowers always get BorrowerID forced to
// their own id.
type ListFilter struct {
	Status      enums.LoanStatus
	BorrowerID  *uuid.UUID
	EquipmentID *uuid.UUID
	Limit       int
	Cursor      string
}

type LoanView struct {
	ID            uuid.UUID        `json:"id"`
	BorrowerID    uuid.UUID        `json:"borrower_id"`
	BorrowerName  string           `json:"borrower_name,omitempty"`
	EquipmentID   uuid.UUID        `json:"equipment_id"`
	EquipmentName string           `json:"equipment_name,omitempty"`
	Quantity      int              `json:"quantity"`
	StartDate     string           `json:"start_date"`
	DueDate       string           `json:"due_date"`
	Status        enums.LoanStatus `json:"status"`
	Note          *string          `json:"note,omitempty"`
	StaffID       *uuid.UUID       `json:"staff_id,omitempty"`
	DecidedAt     *time.Time       `json:"decided_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func NewLoanView(loan *models.Loan) LoanView {
	return LoanView{
		ID:            loan.ID,
		BorrowerID:    loan.BorrowerID,
		BorrowerName:  loan.BorrowerName(),
		EquipmentID:   loan.EquipmentID,
		EquipmentName: loan.EquipmentName(),
		Quantity:      loan.Quantity,
		StartDate:     loan.StartDate.Format(DateLayout),
		DueDate:       loan.DueDate.Format(DateLayout),
		Status:        loan.Status,
		Note:          loan.Note,
		StaffID:       loan.StaffID,
		DecidedAt:     loan.DecidedAt,
		CreatedAt:     loan.CreatedAt,
		UpdatedAt:     loan.UpdatedAt,
	}
}

func loanCursor(v LoanView) pagination.Cursor {
	return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
}

// Result is returned by every loan mutation; Events must be dispatched by
// the caller once the call has returned without error.
type Result struct {
	Loan   LoanView
	Events events.List
}

// ReminderBatch is what one overdue sweep produced.
type ReminderBatch struct {
	Reminded int
	Events   events.List
}
