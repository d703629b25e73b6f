// Package fines reads the fine sub-ledger kept on returns.
package fines

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sarpraslab/peminjaman-backend/internal/returns"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/money"
)

// Summary is the admin figure for fines. Outstanding excludes fines already
// settled, whether stamped in a column or marked in a legacy annotation.
type Summary struct {
	Outstanding        decimal.Decimal `json:"outstanding"`
	OutstandingDisplay string          `json:"outstanding_display"`
	Assessed           decimal.Decimal `json:"assessed"`
	AssessedDisplay    string          `json:"assessed_display"`
	UnpaidReturns      int             `json:"unpaid_returns"`
}

type Service interface {
	TotalOutstanding(ctx context.Context, actor auth.Actor) (*Summary, error)
	// Summarize skips the role check for internal callers such as dashboards.
	Summarize(ctx context.Context) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fines repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) TotalOutstanding(ctx context.Context, actor auth.Actor) (*Summary, error) {
	if err := actor.Require(enums.RoleAdmin, enums.RoleStaff); err != nil {
		return nil, err
	}
	return s.Summarize(ctx)
}

func (s *service) Summarize(ctx context.Context) (*Summary, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum fines")
	}
	legacy, err := s.repo.LegacyUnpaid(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load legacy fines")
	}

	outstanding := totals.UnpaidSplit
	unpaid := int(totals.UnpaidReturns)
	for i := range legacy {
		ret := &legacy[i]
		qty := 0
		if ret.Loan != nil {
			qty = ret.Loan.Quantity
		}
		if returns.Resolve(ret, qty).Paid {
			unpaid--
			continue
		}
		outstanding = outstanding.Add(ret.Fine)
	}

	return &Summary{
		Outstanding:        outstanding,
		OutstandingDisplay: money.FormatRupiah(outstanding),
		Assessed:           totals.Assessed,
		AssessedDisplay:    money.FormatRupiah(totals.Assessed),
		UnpaidReturns:      unpaid,
	}, nil
}
