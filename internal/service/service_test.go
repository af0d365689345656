package service

import (
	"context"
	"errors"
	"testing"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), nil, 0)
}

func TestCommitInvoiceCreatesProductAndIncrementsStock(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	base, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:               "Blouse Katun",
		PurchasePriceCents: 2000,
		SalePriceCents:     5000,
		Variants:           domain.VariantStock{"hitam": {"M": 5}},
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	shipment, err := svc.CommitInvoice(ctx, domain.InvoiceCommitRequest{
		SupplierID:        "sup-garmen-01",
		Date:              "2026-08-01",
		ShippingCostCents: 3000,
		Lines: []domain.InvoiceLine{
			{
				IsNew:              true,
				Name:               "Rok Plisket",
				PurchasePriceCents: 5000,
				SalePriceCents:     12000,
				Quantities:         domain.VariantStock{"navy": {"M": 10}},
			},
			{
				ProductID:  base.ID,
				Quantities: domain.VariantStock{"hitam": {"M": 5}},
			},
		},
	})
	if err != nil {
		t.Fatalf("commit invoice failed: %v", err)
	}
	if shipment.TotalCostCents != 60000 {
		t.Fatalf("expected total cost 60000, got %d", shipment.TotalCostCents)
	}
	if shipment.ShippingCostCents != 3000 {
		t.Fatalf("expected shipping cost 3000, got %d", shipment.ShippingCostCents)
	}
	if len(shipment.Items) != 2 {
		t.Fatalf("expected 2 shipment items, got %d", len(shipment.Items))
	}

	updated, err := svc.GetProduct(ctx, base.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if updated.Variants.Qty("hitam", "M") != 10 {
		t.Fatalf("expected qty 10 after invoice, got %d", updated.Variants.Qty("hitam", "M"))
	}

	products, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	found := false
	for _, p := range products {
		if p.Name == "Rok Plisket" {
			found = true
			if p.Variants.Qty("navy", "M") != 10 {
				t.Fatalf("expected new product qty 10, got %d", p.Variants.Qty("navy", "M"))
			}
		}
	}
	if !found {
		t.Fatalf("expected invoice to create the new product")
	}
}

func TestCommitInvoiceRejectsUnknownProduct(t *testing.T) {
	svc := newTestService()

	_, err := svc.CommitInvoice(context.Background(), domain.InvoiceCommitRequest{
		SupplierID: "sup-garmen-01",
		Date:       "2026-08-01",
		Lines: []domain.InvoiceLine{
			{ProductID: "prd-missing", Quantities: domain.VariantStock{"putih": {"M": 1}}},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestCreateDefectWritesOffStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	defect, err := svc.CreateDefect(ctx, domain.DefectCreateRequest{
		ProductID:  "prd-celana-01",
		Color:      "krem",
		Size:       "S",
		Qty:        4,
		Reason:     "sobek jahitan",
		SupplierID: "sup-garmen-01",
	})
	if err != nil {
		t.Fatalf("create defect failed: %v", err)
	}
	if defect.PurchasePriceCents != 80000 {
		t.Fatalf("expected purchase price defaulted to 80000, got %d", defect.PurchasePriceCents)
	}

	product, err := svc.GetProduct(ctx, "prd-celana-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Variants.Qty("krem", "S") != 2 {
		t.Fatalf("expected qty 2 after write-off, got %d", product.Variants.Qty("krem", "S"))
	}

	_, err = svc.CreateDefect(ctx, domain.DefectCreateRequest{
		ProductID: "prd-celana-01",
		Color:     "krem",
		Size:      "S",
		Qty:       3,
		Reason:    "luntur",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for oversized write-off, got %v", err)
	}
}

func TestAdjustVariantsBatchIsAtomic(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AdjustVariants(ctx, []domain.VariantAdjustment{
		{ProductID: "prd-kemeja-01", Color: "putih", Size: "S", Delta: 2},
		{ProductID: "prd-kemeja-01", Color: "biru", Size: "L", Delta: -100},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	product, err := svc.GetProduct(ctx, "prd-kemeja-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Variants.Qty("putih", "S") != 4 {
		t.Fatalf("expected failed batch to leave qty 4, got %d", product.Variants.Qty("putih", "S"))
	}
}

func TestCreateSaleRepricesFromCatalog(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		CustomerID: "cus-ani-01",
		Items: []domain.SaleItem{
			// Client-sent prices are ignored; the catalog wins.
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 2, UnitPriceCents: 1},
		},
		DiscountCents: 37800,
		PaymentMethod: "qris",
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.SubtotalCents != 378000 {
		t.Fatalf("expected subtotal 378000, got %d", sale.SubtotalCents)
	}
	if sale.TotalCents != 340200 {
		t.Fatalf("expected total 340200, got %d", sale.TotalCents)
	}
	if sale.CashierName != "dina" {
		t.Fatalf("expected cashier dina, got %s", sale.CashierName)
	}

	product, err := svc.GetProduct(ctx, "prd-kemeja-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Variants.Qty("putih", "M") != 4 {
		t.Fatalf("expected qty 4 after sale, got %d", product.Variants.Qty("putih", "M"))
	}
}

func TestSaleReturnRefundsProportionalDiscount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 2},
		},
		DiscountCents: 37800,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	ret, err := svc.CreateSaleReturn(ctx, domain.SaleReturnRequest{
		SaleID: sale.ID,
		Items: []domain.ReturnLine{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 1},
		},
		Reason: "kekecilan",
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}
	// Returned value 189000 minus its half share of the 37800 discount.
	if ret.RefundCents != 170100 {
		t.Fatalf("expected refund 170100, got %d", ret.RefundCents)
	}

	product, err := svc.GetProduct(ctx, "prd-kemeja-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Variants.Qty("putih", "M") != 5 {
		t.Fatalf("expected restocked qty 5, got %d", product.Variants.Qty("putih", "M"))
	}

	_, err = svc.CreateSaleReturn(ctx, domain.SaleReturnRequest{
		SaleID: sale.ID,
		Items: []domain.ReturnLine{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 2},
		},
		Reason: "over return",
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected cumulative over-return to be rejected, got %v", err)
	}
}

func TestCloseShiftWindowsAreGapFree(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prd-gaun-01", Color: "merah", Size: "M", Qty: 1},
		},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	_, err = svc.CreateExpense(ctx, domain.ExpenseRequest{AmountCents: 20000, Note: "air galon"})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}

	first, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ActualCents: 279000})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if first.Summary.ExpectedInDrawerCents != 279000 {
		t.Fatalf("expected drawer 279000, got %d", first.Summary.ExpectedInDrawerCents)
	}
	if first.Reconciliation.Type != domain.ReconciliationExact {
		t.Fatalf("expected exact reconciliation, got %s", first.Reconciliation.Type)
	}
	if first.Summary.SaleCount != 1 || first.Summary.ExpenseCount != 1 {
		t.Fatalf("unexpected shift counts: %+v", first.Summary)
	}

	_, err = svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prd-celana-01", Color: "krem", Size: "M", Qty: 1},
		},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("second sale failed: %v", err)
	}

	second, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ActualCents: 150000})
	if err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if !second.StartedAt.Equal(first.EndedAt) {
		t.Fatalf("expected second shift to start where the first ended")
	}
	if second.Summary.TotalSalesCents != 159000 {
		t.Fatalf("expected second window sales 159000, got %d", second.Summary.TotalSalesCents)
	}
	if second.Reconciliation.Type != domain.ReconciliationShort {
		t.Fatalf("expected short reconciliation, got %s", second.Reconciliation.Type)
	}
	if second.Reconciliation.DifferenceCents != -9000 {
		t.Fatalf("expected difference -9000, got %d", second.Reconciliation.DifferenceCents)
	}
}

func TestCloseShiftReportsOverage(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	shift, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ActualCents: 5000})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if shift.Reconciliation.Type != domain.ReconciliationOver {
		t.Fatalf("expected over reconciliation, got %s", shift.Reconciliation.Type)
	}
	if shift.Reconciliation.DifferenceCents != 5000 {
		t.Fatalf("expected difference 5000, got %d", shift.Reconciliation.DifferenceCents)
	}
	if shift.ClosedBy != "dina" {
		t.Fatalf("expected closed_by dina, got %s", shift.ClosedBy)
	}
}

func TestFulfillBookingAppliesDepositAsDiscount(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	booking, err := svc.CreateBooking(ctx, domain.BookingCreateRequest{
		CustomerID:   "cus-ani-01",
		ProductID:    "prd-kemeja-01",
		Color:        "biru",
		Size:         "M",
		Qty:          1,
		DepositCents: 50000,
		Note:         "ambil sabtu",
	})
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}
	if booking.Status != domain.BookingStatusOpen {
		t.Fatalf("expected open booking, got %s", booking.Status)
	}

	sale, err := svc.FulfillBooking(ctx, booking.ID, domain.BookingFulfillRequest{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("fulfill booking failed: %v", err)
	}
	if sale.DiscountCents != 50000 {
		t.Fatalf("expected deposit applied as discount 50000, got %d", sale.DiscountCents)
	}
	if sale.TotalCents != 139000 {
		t.Fatalf("expected total 139000, got %d", sale.TotalCents)
	}
	if sale.BookingID != booking.ID {
		t.Fatalf("expected sale to reference booking %s", booking.ID)
	}

	_, err = svc.FulfillBooking(ctx, booking.ID, domain.BookingFulfillRequest{PaymentMethod: "cash"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected second fulfillment to conflict, got %v", err)
	}

	sales, err := svc.ListSales(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("conflicting fulfillment must not commit a sale, got %d", len(sales))
	}

	open, err := svc.ListBookings(ctx, domain.BookingStatusOpen, 0)
	if err != nil {
		t.Fatalf("list bookings failed: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open bookings, got %d", len(open))
	}
}

func TestFulfillBookingFailureLeavesBookingOpen(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	booking, err := svc.CreateBooking(ctx, domain.BookingCreateRequest{
		CustomerID: "cus-ani-01",
		ProductID:  "prd-kemeja-01",
		Color:      "biru",
		Size:       "M",
		Qty:        99,
	})
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}

	_, err = svc.FulfillBooking(ctx, booking.ID, domain.BookingFulfillRequest{PaymentMethod: "cash"})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	open, err := svc.ListBookings(ctx, domain.BookingStatusOpen, 0)
	if err != nil {
		t.Fatalf("list bookings failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != booking.ID {
		t.Fatalf("failed fulfillment must leave the booking open, got %+v", open)
	}

	sales, err := svc.ListSales(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("failed fulfillment must not commit a sale, got %d", len(sales))
	}
}

func TestCancelBookingKeepsStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, domain.BookingCreateRequest{
		CustomerID:   "cus-ani-01",
		ProductID:    "prd-gaun-01",
		Color:        "hitam",
		Size:         "L",
		Qty:          1,
		DepositCents: 30000,
	})
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}

	cancelled, err := svc.CancelBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("cancel booking failed: %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	product, err := svc.GetProduct(ctx, "prd-gaun-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Variants.Qty("hitam", "L") != 4 {
		t.Fatalf("bookings must not touch stock, got qty %d", product.Variants.Qty("hitam", "L"))
	}
}

func TestSyncWorkingSetUpsertsAndDeletesAbsent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	products, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 seeded products, got %d", len(products))
	}

	snapshot := domain.WorkingSet{
		Products: []domain.Product{
			products[0],
			products[1],
			{Name: "Tanpa ID", PurchasePriceCents: 1000},
		},
	}
	report, err := svc.SyncWorkingSet(ctx, snapshot)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if report.Products.Upserted != 2 {
		t.Fatalf("expected 2 upserts, got %d", report.Products.Upserted)
	}
	if report.Products.Deleted != 1 {
		t.Fatalf("expected 1 delete, got %d", report.Products.Deleted)
	}
	if report.Products.Skipped != 1 {
		t.Fatalf("expected 1 skip, got %d", report.Products.Skipped)
	}

	again, err := svc.SyncWorkingSet(ctx, snapshot)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if again.Products.Deleted != 0 {
		t.Fatalf("expected idempotent re-sync to delete nothing, got %d", again.Products.Deleted)
	}

	remaining, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 products after sync, got %d", len(remaining))
	}
}

func TestSyncWorkingSetLeavesOmittedCollectionsAlone(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	report, err := svc.SyncWorkingSet(ctx, domain.WorkingSet{
		Customers: []domain.Customer{
			{ID: "cus-ani-01", Name: "Ani"},
		},
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if report.Customers.Upserted != 1 {
		t.Fatalf("expected 1 customer upsert, got %d", report.Customers.Upserted)
	}
	if report.Products.Deleted != 0 || report.Products.Upserted != 0 {
		t.Fatalf("omitted collection must not be touched, got %+v", report.Products)
	}

	products, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("customers-only sync must keep the 3 seeded products, got %d", len(products))
	}
}

func TestSalaryReportAttributesSalesNetOfReturns(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 2},
		},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	_, err = svc.CreateSaleReturn(ctx, domain.SaleReturnRequest{
		SaleID: sale.ID,
		Items: []domain.ReturnLine{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 1},
		},
		Reason: "tukar ukuran",
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}

	report, err := svc.SalaryReport(ctx, "dina", "", "")
	if err != nil {
		t.Fatalf("salary report failed: %v", err)
	}
	if report.AttributedSalesCents != 189000 {
		t.Fatalf("expected attributed sales 189000, got %d", report.AttributedSalesCents)
	}
	if report.CommissionCents != 3780 {
		t.Fatalf("expected commission 3780, got %d", report.CommissionCents)
	}
	if report.TotalCents != 2503780 {
		t.Fatalf("expected total 2503780, got %d", report.TotalCents)
	}
}

func TestPreviewShiftDoesNotAdvanceMarker(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Name: "dina"})

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prd-celana-01", Color: "krem", Size: "L", Qty: 1},
		},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	preview, err := svc.PreviewShift(ctx)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if preview.TotalSalesCents != 159000 {
		t.Fatalf("expected preview sales 159000, got %d", preview.TotalSalesCents)
	}

	shift, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ActualCents: 159000})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if shift.Summary.TotalSalesCents != 159000 {
		t.Fatalf("expected settled sales 159000 after preview, got %d", shift.Summary.TotalSalesCents)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	expense, err := svc.CreateExpense(ctx, domain.ExpenseRequest{AmountCents: 15000, Note: "plastik kemasan"})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}

	updated, err := svc.UpdateExpense(ctx, expense.ID, domain.ExpenseRequest{AmountCents: 18000, Note: "plastik kemasan premium"})
	if err != nil {
		t.Fatalf("update expense failed: %v", err)
	}
	if updated.AmountCents != 18000 {
		t.Fatalf("expected amount 18000, got %d", updated.AmountCents)
	}
	if !updated.CreatedAt.Equal(expense.CreatedAt) {
		t.Fatalf("expected update to preserve created_at")
	}

	if err := svc.DeleteExpense(ctx, expense.ID); err != nil {
		t.Fatalf("delete expense failed: %v", err)
	}
	if err := svc.DeleteExpense(ctx, expense.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestCreateStaffRejectsBadCommissionRate(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateStaff(context.Background(), domain.StaffMember{
		Username:        "rudi",
		BaseSalaryCents: 2000000,
		CommissionRate:  1.5,
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for commission rate > 1, got %v", err)
	}
}
