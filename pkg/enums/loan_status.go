package enums

import (
	"fmt"
	"strings"
)

// LoanStatus tracks where a loan sits in its lifecycle.
type LoanStatus string

const (
	LoanStatusPending             LoanStatus = "pending"
	LoanStatusApproved            LoanStatus = "approved"
	LoanStatusBorrowed            LoanStatus = "borrowed"
	LoanStatusRejected            LoanStatus = "rejected"
	LoanStatusAwaitingReturnCheck LoanStatus = "awaiting_return_confirmation"
	LoanStatusReturned            LoanStatus = "returned"
)

var validLoanStatuses = []LoanStatus{
	LoanStatusPending,
	LoanStatusApproved,
	LoanStatusBorrowed,
	LoanStatusRejected,
	LoanStatusAwaitingReturnCheck,
	LoanStatusReturned,
}

var legacyLoanStatuses = map[string]LoanStatus{
	"disetujui":           LoanStatusApproved,
	"dipinjam":            LoanStatusBorrowed,
	"ditolak":             LoanStatusRejected,
	"menunggu_konfirmasi": LoanStatusAwaitingReturnCheck,
	"dikembalikan":        LoanStatusReturned,
}

func (s LoanStatus) IsValid() bool {
	for _, candidate := range validLoanStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// HoldsReservation reports whether units are still deducted from inventory
// on behalf of a loan in this status.
func (s LoanStatus) HoldsReservation() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusBorrowed, LoanStatusAwaitingReturnCheck:
		return true
	}
	return false
}

// CanSubmitReturn reports whether a borrower may file a return from this status.
// Borrowed is the legacy equivalent of approved.
func (s LoanStatus) CanSubmitReturn() bool {
	return s == LoanStatusApproved || s == LoanStatusBorrowed
}

func ParseLoanStatus(value string) (LoanStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validLoanStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if status, ok := legacyLoanStatuses[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid loan status %q", value)
}

// LoanDecision is the verdict staff or admin reach on a pending loan.
type LoanDecision string

const (
	LoanDecisionApprove LoanDecision = "approve"
	LoanDecisionReject  LoanDecision = "reject"
)

func ParseLoanDecision(value string) (LoanDecision, error) {
	switch LoanDecision(strings.ToLower(strings.TrimSpace(value))) {
	case LoanDecisionApprove:
		return LoanDecisionApprove, nil
	case LoanDecisionReject:
		return LoanDecisionReject, nil
	}
	return "", fmt.Errorf("invalid loan decision %q", value)
}

// Status maps the decision onto the resulting loan status.
func (d LoanDecision) Status() LoanStatus {
	if d == LoanDecisionApprove {
		return LoanStatusApproved
	}
	return LoanStatusRejected
}
