package service

import (
	"context"
	"fmt"
	"strings"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if len(req.Items) == 0 || req.DiscountCents < 0 {
		return domain.Sale{}, store.ErrInvalid
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}

	cashier := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		cashier = actor.Name
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		CustomerID:    strings.TrimSpace(req.CustomerID),
		CashierName:   cashier,
		Items:         req.Items,
		DiscountCents: req.DiscountCents,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAction(ctx, "sale_create", sale.ID, fmt.Sprintf("total=%d,items=%d", sale.TotalCents, len(sale.Items)))
	return *sale, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalid
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, fromStr string, toStr string, limit int) ([]domain.Sale, error) {
	from, to, err := parseWindow(fromStr, toStr)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, from, to, limit)
}

// CreateSaleReturn restocks returned variants and computes the refund
// net of the sale discount's proportional share.
func (s *Service) CreateSaleReturn(ctx context.Context, req domain.SaleReturnRequest) (domain.SaleReturn, error) {
	req.SaleID = strings.TrimSpace(req.SaleID)
	if req.SaleID == "" || len(req.Items) == 0 {
		return domain.SaleReturn{}, store.ErrInvalid
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.ProductID == "" || line.Color == "" || line.Size == "" || line.Qty < 1 {
			return domain.SaleReturn{}, store.ErrInvalid
		}
		items = append(items, domain.SaleItem{
			ProductID: line.ProductID,
			Color:     line.Color,
			Size:      line.Size,
			Qty:       line.Qty,
		})
	}

	ret, err := s.repo.CreateSaleReturn(ctx, domain.SaleReturn{
		SaleID: req.SaleID,
		Items:  items,
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return domain.SaleReturn{}, err
	}

	s.logAction(ctx, "sale_return", ret.ID, fmt.Sprintf("sale=%s,refund=%d", ret.SaleID, ret.RefundCents))
	return *ret, nil
}

func (s *Service) ListSaleReturns(ctx context.Context, fromStr string, toStr string, limit int) ([]domain.SaleReturn, error) {
	from, to, err := parseWindow(fromStr, toStr)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSaleReturns(ctx, from, to, limit)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseRequest) (domain.DailyExpense, error) {
	if req.AmountCents < 1 {
		return domain.DailyExpense{}, store.ErrInvalid
	}
	expense, err := s.repo.CreateExpense(ctx, domain.DailyExpense{
		AmountCents: req.AmountCents,
		Note:        strings.TrimSpace(req.Note),
	})
	if err != nil {
		return domain.DailyExpense{}, err
	}
	s.logAction(ctx, "expense_create", expense.ID, fmt.Sprintf("amount=%d", expense.AmountCents))
	return *expense, nil
}

func (s *Service) UpdateExpense(ctx context.Context, id string, req domain.ExpenseRequest) (domain.DailyExpense, error) {
	id = strings.TrimSpace(id)
	if id == "" || req.AmountCents < 1 {
		return domain.DailyExpense{}, store.ErrInvalid
	}
	expense, err := s.repo.UpdateExpense(ctx, domain.DailyExpense{
		ID:          id,
		AmountCents: req.AmountCents,
		Note:        strings.TrimSpace(req.Note),
	})
	if err != nil {
		return domain.DailyExpense{}, err
	}
	return *expense, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalid
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAction(ctx, "expense_delete", id, "")
	return nil
}

func (s *Service) ListExpenses(ctx context.Context, fromStr string, toStr string, limit int) ([]domain.DailyExpense, error) {
	from, to, err := parseWindow(fromStr, toStr)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, from, to, limit)
}
