package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

func (s *Store) CommitInvoice(_ context.Context, shipmentID string, supplierID string, date time.Time, shippingCostCents int64, lines []domain.InvoiceLine) (*domain.Shipment, error) {
	if shipmentID == "" || strings.TrimSpace(supplierID) == "" || len(lines) == 0 || shippingCostCents < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shipmentsByID[shipmentID]; exists {
		return nil, store.ErrConflict
	}

	// Plan first, write second: resolve every line against authoritative
	// product state (plus the products this invoice introduces) before
	// any mutation, so a missing product aborts with nothing written.
	now := time.Now().UTC()
	newProducts := make([]domain.Product, 0, 2)
	newByIndex := make(map[int]*domain.Product, 2)
	for i, line := range lines {
		if !line.IsNew {
			continue
		}
		if strings.TrimSpace(line.Name) == "" || line.PurchasePriceCents < 0 {
			return nil, store.ErrInvalid
		}
		product := domain.Product{
			ID:                 xid.New("prd"),
			Name:               strings.TrimSpace(line.Name),
			PurchasePriceCents: line.PurchasePriceCents,
			SalePriceCents:     line.SalePriceCents,
			Variants:           domain.VariantStock{},
			Active:             true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		newProducts = append(newProducts, product)
		newByIndex[i] = &newProducts[len(newProducts)-1]
	}

	adjustments := make([]domain.VariantAdjustment, 0, len(lines)*2)
	items := make([]domain.ShipmentItem, 0, len(lines)*2)
	totalCents := int64(0)
	for i, line := range lines {
		var product domain.Product
		if created, ok := newByIndex[i]; ok {
			product = *created
		} else {
			existing, ok := s.products[line.ProductID]
			if !ok {
				return nil, store.ErrNotFound
			}
			product = existing
		}

		for _, color := range sortedKeys(line.Quantities) {
			sizes := line.Quantities[color]
			for _, size := range sortedKeys(sizes) {
				qty := sizes[size]
				if qty < 0 {
					return nil, store.ErrInvalid
				}
				if qty == 0 {
					continue
				}
				adjustments = append(adjustments, domain.VariantAdjustment{
					ProductID: product.ID,
					Color:     color,
					Size:      size,
					Delta:     qty,
				})
				items = append(items, domain.ShipmentItem{
					ProductID:          product.ID,
					ProductName:        product.Name,
					Color:              color,
					Size:               size,
					Qty:                qty,
					PurchasePriceCents: product.PurchasePriceCents,
				})
				totalCents += int64(qty) * product.PurchasePriceCents
			}
		}
	}
	if len(items) == 0 {
		return nil, store.ErrInvalid
	}

	for _, product := range newProducts {
		s.products[product.ID] = cloneProduct(product)
	}
	if _, err := s.adjustVariantsLocked(adjustments); err != nil {
		// Deltas are all positive, so only a vanished product could
		// fail here; nothing else has been written for it.
		for _, product := range newProducts {
			delete(s.products, product.ID)
		}
		return nil, err
	}

	shipment := domain.Shipment{
		ID:                shipmentID,
		SupplierID:        supplierID,
		Date:              date,
		ShippingCostCents: shippingCostCents,
		Items:             items,
		TotalCostCents:    totalCents,
		CreatedAt:         now,
	}
	s.shipmentsByID[shipmentID] = cloneShipment(shipment)
	committed := cloneShipment(shipment)
	return &committed, nil
}

func (s *Store) GetShipment(_ context.Context, id string) (*domain.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shipment, exists := s.shipmentsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneShipment(shipment)
	return &copied, nil
}

func (s *Store) ListShipments(_ context.Context, limit int) ([]domain.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shipments := make([]domain.Shipment, 0, len(s.shipmentsByID))
	for _, sh := range s.shipmentsByID {
		shipments = append(shipments, cloneShipment(sh))
	}
	sort.Slice(shipments, func(i, j int) bool {
		if shipments[i].CreatedAt.Equal(shipments[j].CreatedAt) {
			return shipments[i].ID > shipments[j].ID
		}
		return shipments[i].CreatedAt.After(shipments[j].CreatedAt)
	})
	if limit > 0 && len(shipments) > limit {
		shipments = shipments[:limit]
	}
	return shipments, nil
}

func (s *Store) CreateDefect(_ context.Context, defect domain.Defect) (*domain.Defect, error) {
	if defect.ProductID == "" || defect.Color == "" || defect.Size == "" || defect.Qty < 1 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[defect.ProductID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Check-then-decrement stays under the same lock as the write so
	// two concurrent write-offs cannot both consume the last units.
	if _, err := s.adjustVariantsLocked([]domain.VariantAdjustment{{
		ProductID: defect.ProductID,
		Color:     defect.Color,
		Size:      defect.Size,
		Delta:     -defect.Qty,
	}}); err != nil {
		return nil, err
	}

	if defect.ID == "" {
		defect.ID = xid.New("def")
	}
	if defect.PurchasePriceCents == 0 {
		defect.PurchasePriceCents = product.PurchasePriceCents
	}
	if defect.CreatedAt.IsZero() {
		defect.CreatedAt = time.Now().UTC()
	}
	s.defectsByID[defect.ID] = defect
	created := defect
	return &created, nil
}

func (s *Store) ListDefects(_ context.Context, limit int) ([]domain.Defect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defects := make([]domain.Defect, 0, len(s.defectsByID))
	for _, d := range s.defectsByID {
		defects = append(defects, d)
	}
	sort.Slice(defects, func(i, j int) bool {
		if defects[i].CreatedAt.Equal(defects[j].CreatedAt) {
			return defects[i].ID > defects[j].ID
		}
		return defects[i].CreatedAt.After(defects[j].CreatedAt)
	})
	if limit > 0 && len(defects) > limit {
		defects = defects[:limit]
	}
	return defects, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A sale against a booking resolves that booking under the same
	// lock, so a second fulfillment cannot slip in between the sale
	// write and the booking update.
	if sale.BookingID != "" {
		booking, exists := s.bookingsByID[sale.BookingID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if booking.Status != domain.BookingStatusOpen {
			return nil, store.ErrConflict
		}
	}

	subtotal := int64(0)
	adjustments := make([]domain.VariantAdjustment, 0, len(sale.Items))
	priced := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.ProductID == "" || item.Color == "" || item.Size == "" || item.Qty < 1 {
			return nil, store.ErrInvalid
		}
		product, exists := s.products[item.ProductID]
		if !exists || !product.Active {
			return nil, store.ErrNotFound
		}
		item.ProductName = product.Name
		item.UnitPriceCents = product.SalePriceCents
		priced = append(priced, item)
		subtotal += int64(item.Qty) * item.UnitPriceCents
		adjustments = append(adjustments, domain.VariantAdjustment{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Delta:     -item.Qty,
		})
	}
	if sale.DiscountCents < 0 || sale.DiscountCents > subtotal {
		return nil, store.ErrInvalid
	}

	if _, err := s.adjustVariantsLocked(adjustments); err != nil {
		return nil, err
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Items = priced
	sale.SubtotalCents = subtotal
	sale.TotalCents = subtotal - sale.DiscountCents
	s.salesByID[sale.ID] = cloneSale(sale)

	if sale.BookingID != "" {
		booking := s.bookingsByID[sale.BookingID]
		booking.Status = domain.BookingStatusFulfilled
		booking.SaleID = sale.ID
		resolvedAt := sale.CreatedAt
		booking.ResolvedAt = &resolvedAt
		s.bookingsByID[sale.BookingID] = booking
	}

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneSale(sale)
	return &copied, nil
}

func (s *Store) ListSales(_ context.Context, from, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if !inWindow(sale.CreatedAt, from, to) {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].CreatedAt.Equal(sales[j].CreatedAt) {
			return sales[i].ID > sales[j].ID
		}
		return sales[i].CreatedAt.After(sales[j].CreatedAt)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) CreateSaleReturn(_ context.Context, ret domain.SaleReturn) (*domain.SaleReturn, error) {
	if ret.SaleID == "" || len(ret.Items) == 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[ret.SaleID]
	if !exists {
		return nil, store.ErrNotFound
	}

	soldByVariant := make(map[string]domain.SaleItem, len(sale.Items))
	for _, item := range sale.Items {
		k := variantKey(item.ProductID, item.Color, item.Size)
		agg := soldByVariant[k]
		agg.ProductID = item.ProductID
		agg.ProductName = item.ProductName
		agg.Color = item.Color
		agg.Size = item.Size
		agg.UnitPriceCents = item.UnitPriceCents
		agg.Qty += item.Qty
		soldByVariant[k] = agg
	}
	returnedByVariant := make(map[string]int)
	for _, prior := range s.returnsByID {
		if prior.SaleID != ret.SaleID {
			continue
		}
		for _, item := range prior.Items {
			returnedByVariant[variantKey(item.ProductID, item.Color, item.Size)] += item.Qty
		}
	}

	returnedValue := int64(0)
	items := make([]domain.SaleItem, 0, len(ret.Items))
	adjustments := make([]domain.VariantAdjustment, 0, len(ret.Items))
	for _, item := range ret.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalid
		}
		k := variantKey(item.ProductID, item.Color, item.Size)
		sold, ok := soldByVariant[k]
		if !ok {
			return nil, store.ErrInvalid
		}
		if returnedByVariant[k]+item.Qty > sold.Qty {
			return nil, store.ErrInvalid
		}
		items = append(items, domain.SaleItem{
			ProductID:      sold.ProductID,
			ProductName:    sold.ProductName,
			Color:          sold.Color,
			Size:           sold.Size,
			Qty:            item.Qty,
			UnitPriceCents: sold.UnitPriceCents,
		})
		returnedValue += int64(item.Qty) * sold.UnitPriceCents
		adjustments = append(adjustments, domain.VariantAdjustment{
			ProductID: sold.ProductID,
			Color:     sold.Color,
			Size:      sold.Size,
			Delta:     item.Qty,
		})
	}

	if _, err := s.adjustVariantsLocked(adjustments); err != nil {
		return nil, err
	}

	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}
	ret.Items = items
	ret.RefundCents = refundNetOfDiscount(returnedValue, sale.SubtotalCents, sale.DiscountCents)
	s.returnsByID[ret.ID] = ret
	created := ret
	created.Items = append([]domain.SaleItem(nil), ret.Items...)
	return &created, nil
}

func (s *Store) ListSaleReturns(_ context.Context, from, to time.Time, limit int) ([]domain.SaleReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returns := make([]domain.SaleReturn, 0, len(s.returnsByID))
	for _, ret := range s.returnsByID {
		if !inWindow(ret.CreatedAt, from, to) {
			continue
		}
		copied := ret
		copied.Items = append([]domain.SaleItem(nil), ret.Items...)
		returns = append(returns, copied)
	}
	sort.Slice(returns, func(i, j int) bool {
		if returns[i].CreatedAt.Equal(returns[j].CreatedAt) {
			return returns[i].ID > returns[j].ID
		}
		return returns[i].CreatedAt.After(returns[j].CreatedAt)
	})
	if limit > 0 && len(returns) > limit {
		returns = returns[:limit]
	}
	return returns, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.DailyExpense) (*domain.DailyExpense, error) {
	if expense.AmountCents < 1 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expensesByID[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.DailyExpense) (*domain.DailyExpense, error) {
	if expense.ID == "" || expense.AmountCents < 1 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.expensesByID[expense.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	expense.CreatedAt = existing.CreatedAt
	s.expensesByID[expense.ID] = expense
	updated := expense
	return &updated, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expensesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expensesByID, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, from, to time.Time, limit int) ([]domain.DailyExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.DailyExpense, 0, len(s.expensesByID))
	for _, e := range s.expensesByID {
		if !inWindow(e.CreatedAt, from, to) {
			continue
		}
		expenses = append(expenses, e)
	}
	sort.Slice(expenses, func(i, j int) bool {
		if expenses[i].CreatedAt.Equal(expenses[j].CreatedAt) {
			return expenses[i].ID > expenses[j].ID
		}
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
	if limit > 0 && len(expenses) > limit {
		expenses = expenses[:limit]
	}
	return expenses, nil
}

func (s *Store) SettleShift(_ context.Context, shiftID string, closedBy string, actualCents int64, now time.Time) (*domain.Shift, error) {
	if shiftID == "" || strings.TrimSpace(closedBy) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Window starts where the previous shift ended; the zero time acts
	// as the beginning-of-time sentinel so the first shift ever picks
	// up all historical unclosed activity.
	start := s.lastShiftEnd
	if !now.After(start) {
		return nil, store.ErrConflict
	}

	summary := domain.ShiftSummary{}
	for _, sale := range s.salesByID {
		if !inWindow(sale.CreatedAt, start, now) {
			continue
		}
		summary.TotalSalesCents += sale.TotalCents
		summary.SaleCount++
	}
	for _, ret := range s.returnsByID {
		if !inWindow(ret.CreatedAt, start, now) {
			continue
		}
		summary.TotalReturnsCents += ret.RefundCents
		summary.ReturnCount++
	}
	for _, expense := range s.expensesByID {
		if !inWindow(expense.CreatedAt, start, now) {
			continue
		}
		summary.TotalExpensesCents += expense.AmountCents
		summary.ExpenseCount++
	}
	summary.ExpectedInDrawerCents = summary.TotalSalesCents - summary.TotalReturnsCents - summary.TotalExpensesCents

	shift := domain.Shift{
		ID:             shiftID,
		StartedAt:      start,
		EndedAt:        now,
		ClosedBy:       closedBy,
		Summary:        summary,
		Reconciliation: domain.Reconcile(actualCents, summary.ExpectedInDrawerCents),
	}
	s.shiftsByID[shiftID] = shift
	s.lastShiftEnd = now
	settled := shift
	return &settled, nil
}

func (s *Store) LastShiftEnd(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastShiftEnd, nil
}

func (s *Store) ListShifts(_ context.Context, limit int) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shifts := make([]domain.Shift, 0, len(s.shiftsByID))
	for _, shift := range s.shiftsByID {
		shifts = append(shifts, shift)
	}
	sort.Slice(shifts, func(i, j int) bool {
		return shifts[i].EndedAt.After(shifts[j].EndedAt)
	})
	if limit > 0 && len(shifts) > limit {
		shifts = shifts[:limit]
	}
	return shifts, nil
}

// refundNetOfDiscount subtracts the returned value's proportional share
// of the original sale discount.
func refundNetOfDiscount(returnedValue, saleSubtotal, saleDiscount int64) int64 {
	if saleSubtotal < 1 || saleDiscount < 1 {
		return returnedValue
	}
	share := int64(math.Round(float64(saleDiscount) * float64(returnedValue) / float64(saleSubtotal)))
	return returnedValue - share
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func variantKey(productID, color, size string) string {
	return productID + "|" + color + "|" + size
}
