package service

import (
	"context"
	"fmt"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

// CloseShift settles the window since the previous shift end: the
// aggregate, the reconciliation against the counted drawer amount and
// the marker advance all commit in one store transaction. Consecutive
// shifts leave no gap and no overlap.
func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.Shift, error) {
	if req.ActualCents < 0 {
		return domain.Shift{}, store.ErrInvalid
	}

	closedBy := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		closedBy = actor.Name
	}

	shift, err := s.repo.SettleShift(ctx, xid.New("shift"), closedBy, req.ActualCents, time.Now().UTC())
	if err != nil {
		return domain.Shift{}, err
	}

	s.logAction(ctx, "shift_close", shift.ID, fmt.Sprintf("expected=%d,actual=%d,reconciliation=%s",
		shift.Summary.ExpectedInDrawerCents, shift.Reconciliation.ActualCents, shift.Reconciliation.Type))
	return *shift, nil
}

// PreviewShift reports what a settlement right now would contain,
// without closing anything. Numbers may drift until CloseShift runs.
func (s *Service) PreviewShift(ctx context.Context) (domain.ShiftSummary, error) {
	start, err := s.repo.LastShiftEnd(ctx)
	if err != nil {
		return domain.ShiftSummary{}, err
	}
	now := time.Now().UTC()

	summary := domain.ShiftSummary{}
	sales, err := s.repo.ListSales(ctx, start, now, 0)
	if err != nil {
		return domain.ShiftSummary{}, err
	}
	for _, sale := range sales {
		summary.TotalSalesCents += sale.TotalCents
		summary.SaleCount++
	}
	returns, err := s.repo.ListSaleReturns(ctx, start, now, 0)
	if err != nil {
		return domain.ShiftSummary{}, err
	}
	for _, ret := range returns {
		summary.TotalReturnsCents += ret.RefundCents
		summary.ReturnCount++
	}
	expenses, err := s.repo.ListExpenses(ctx, start, now, 0)
	if err != nil {
		return domain.ShiftSummary{}, err
	}
	for _, expense := range expenses {
		summary.TotalExpensesCents += expense.AmountCents
		summary.ExpenseCount++
	}
	summary.ExpectedInDrawerCents = summary.TotalSalesCents - summary.TotalReturnsCents - summary.TotalExpensesCents
	return summary, nil
}

func (s *Service) ListShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	return s.repo.ListShifts(ctx, limit)
}
