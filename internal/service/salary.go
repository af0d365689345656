package service

import (
	"context"
	"math"
	"strings"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

// SalaryReport computes one staff member's pay for a period: base
// salary plus commission on the sales they rang up, net of returns on
// those sales within the same period.
func (s *Service) SalaryReport(ctx context.Context, username string, fromStr string, toStr string) (domain.SalaryReport, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return domain.SalaryReport{}, store.ErrInvalid
	}
	from, to, err := parseWindow(fromStr, toStr)
	if err != nil {
		return domain.SalaryReport{}, err
	}

	staff, err := s.repo.GetStaff(ctx, username)
	if err != nil {
		return domain.SalaryReport{}, err
	}

	sales, err := s.repo.ListSales(ctx, from, to, 0)
	if err != nil {
		return domain.SalaryReport{}, err
	}
	attributed := int64(0)
	saleIDs := make(map[string]bool, 16)
	for _, sale := range sales {
		if sale.CashierName != staff.Username {
			continue
		}
		attributed += sale.TotalCents
		saleIDs[sale.ID] = true
	}

	returns, err := s.repo.ListSaleReturns(ctx, from, to, 0)
	if err != nil {
		return domain.SalaryReport{}, err
	}
	for _, ret := range returns {
		if saleIDs[ret.SaleID] {
			attributed -= ret.RefundCents
		}
	}
	if attributed < 0 {
		attributed = 0
	}

	shiftsClosed := 0
	shifts, err := s.repo.ListShifts(ctx, 0)
	if err != nil {
		return domain.SalaryReport{}, err
	}
	for _, shift := range shifts {
		if shift.ClosedBy == staff.Username && !shift.EndedAt.Before(from) && shift.EndedAt.Before(to) {
			shiftsClosed++
		}
	}

	commission := int64(math.Round(float64(attributed) * staff.CommissionRate))
	return domain.SalaryReport{
		Username:             staff.Username,
		PeriodStart:          strings.TrimSpace(fromStr),
		PeriodEnd:            strings.TrimSpace(toStr),
		BaseSalaryCents:      staff.BaseSalaryCents,
		AttributedSalesCents: attributed,
		CommissionCents:      commission,
		TotalCents:           staff.BaseSalaryCents + commission,
		ShiftsClosed:         shiftsClosed,
	}, nil
}
