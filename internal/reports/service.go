// Package reports builds the role dashboards and the staff loan report.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sarpraslab/peminjaman-backend/internal/audit"
	"github.com/sarpraslab/peminjaman-backend/internal/fines"
	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/internal/returns"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/money"
)

const latestN = 3

type fineSummarizer interface {
	Summarize(ctx context.Context) (*fines.Summary, error)
}

type activityFeed interface {
	Latest(ctx context.Context, n int) ([]audit.EntryView, error)
}

// Dashboard carries only the sections the caller's role may see.
type Dashboard struct {
	Role          enums.Role           `json:"role"`
	Counts        Counts               `json:"counts"`
	Fines         *fines.Summary       `json:"fines,omitempty"`
	LatestLoans   []loans.LoanView     `json:"latest_loans"`
	LatestReturns []returns.ReturnView `json:"latest_returns"`
	LatestLogs    []audit.EntryView    `json:"latest_activity,omitempty"`
}

type ReportFilter struct {
	From   *time.Time
	To     *time.Time
	Status enums.LoanStatus
}

type ReportRow struct {
	LoanID        uuid.UUID        `json:"loan_id"`
	BorrowerName  string           `json:"borrower_name"`
	EquipmentName string           `json:"equipment_name"`
	Quantity      int              `json:"quantity"`
	StartDate     string           `json:"start_date"`
	DueDate       string           `json:"due_date"`
	Status        enums.LoanStatus `json:"status"`
	ReturnedGood  *int             `json:"returned_good,omitempty"`
	Fine          decimal.Decimal  `json:"fine"`
	FineDisplay   string           `json:"fine_display"`
	FinePaid      bool             `json:"fine_paid"`
}

type ReportSummary struct {
	Total       int             `json:"total"`
	Returned    int             `json:"returned"`
	Pending     int             `json:"pending"`
	Rejected    int             `json:"rejected"`
	Outstanding decimal.Decimal `json:"outstanding_fines"`
	Display     string          `json:"outstanding_fines_display"`
}

type LoanReport struct {
	Rows    []ReportRow   `json:"rows"`
	Summary ReportSummary `json:"summary"`
}

type Service interface {
	Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error)
	LoanReport(ctx context.Context, actor auth.Actor, filter ReportFilter) (*LoanReport, error)
}

type service struct {
	repo     Repository
	fines    fineSummarizer
	activity activityFeed
}

func NewService(repo Repository, fineSvc fineSummarizer, activity activityFeed) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if fineSvc == nil {
		return nil, fmt.Errorf("fine summarizer required")
	}
	if activity == nil {
		return nil, fmt.Errorf("activity feed required")
	}
	return &service{repo: repo, fines: fineSvc, activity: activity}, nil
}

func (s *service) Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff, enums.RoleBorrower); err != nil {
		return nil, err
	}
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dashboard counts")
	}
	out := &Dashboard{Role: actor.Role}

	var (
		borrowerID *uuid.UUID
		statuses   []enums.LoanStatus
	)
	switch actor.Role {
	case enums.RoleAdmin:
		out.Counts = counts
		if out.Fines, err = s.fines.Summarize(ctx); err != nil {
			return nil, err
		}
		if out.LatestLogs, err = s.activity.Latest(ctx, latestN); err != nil {
			return nil, err
		}
	case enums.RoleStaff:
		out.Counts = Counts{PendingLoans: counts.PendingLoans, AwaitingReturns: counts.AwaitingReturns}
	case enums.RoleBorrower:
		out.Counts = Counts{Equipment: counts.Equipment, Categories: counts.Categories}
		borrowerID = actor.IDPtr()
		statuses = []enums.LoanStatus{enums.LoanStatusPending, enums.LoanStatusApproved, enums.LoanStatusBorrowed}
	}

	loanRows, err := s.repo.LatestLoans(ctx, latestN, borrowerID, statuses)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "latest loans")
	}
	out.LatestLoans = make([]loans.LoanView, 0, len(loanRows))
	for i := range loanRows {
		out.LatestLoans = append(out.LatestLoans, loans.NewLoanView(&loanRows[i]))
	}

	returnRows, err := s.repo.LatestReturns(ctx, latestN, borrowerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "latest returns")
	}
	out.LatestReturns = make([]returns.ReturnView, 0, len(returnRows))
	for i := range returnRows {
		out.LatestReturns = append(out.LatestReturns, returns.NewReturnView(&returnRows[i]))
	}
	return out, nil
}

func (s *service) LoanReport(ctx context.Context, actor auth.Actor, filter ReportFilter) (*LoanReport, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report end date is before its start date")
	}

	loanRows, err := s.repo.LoansBetween(ctx, filter.From, filter.To, filter.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "report loans")
	}
	ids := make([]uuid.UUID, 0, len(loanRows))
	for _, l := range loanRows {
		ids = append(ids, l.ID)
	}
	returnRows, err := s.repo.ReturnsForLoans(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "report returns")
	}
	byLoan := make(map[uuid.UUID]*models.Return, len(returnRows))
	for i := range returnRows {
		byLoan[returnRows[i].LoanID] = &returnRows[i]
	}

	report := &LoanReport{Rows: make([]ReportRow, 0, len(loanRows))}
	outstanding := decimal.Zero
	for i := range loanRows {
		loan := &loanRows[i]
		row := ReportRow{
			LoanID:        loan.ID,
			BorrowerName:  loan.BorrowerName(),
			EquipmentName: loan.EquipmentName(),
			Quantity:      loan.Quantity,
			StartDate:     loan.StartDate.Format(loans.DateLayout),
			DueDate:       loan.DueDate.Format(loans.DateLayout),
			Status:        loan.Status,
			Fine:          decimal.Zero,
		}
		if ret, ok := byLoan[loan.ID]; ok {
			rec := returns.Resolve(ret, loan.Quantity)
			good := rec.Split.Good
			row.ReturnedGood = &good
			row.Fine = ret.Fine
			row.FinePaid = rec.Paid
			if ret.Fine.IsPositive() && !rec.Paid {
				outstanding = outstanding.Add(ret.Fine)
			}
		}
		row.FineDisplay = money.FormatRupiah(row.Fine)
		report.Rows = append(report.Rows, row)

		report.Summary.Total++
		switch loan.Status {
		case enums.LoanStatusReturned:
			report.Summary.Returned++
		case enums.LoanStatusPending:
			report.Summary.Pending++
		case enums.LoanStatusRejected:
			report.Summary.Rejected++
		}
	}
	report.Summary.Outstanding = outstanding
	report.Summary.Display = money.FormatRupiah(outstanding)
	return report, nil
}
