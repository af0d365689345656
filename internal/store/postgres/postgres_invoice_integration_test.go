package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"butikpos/backend/internal/domain"
)

func TestCommitInvoiceIncrementsVariants(t *testing.T) {
	databaseURL := os.Getenv("BUTIKPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BUTIKPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prd-inv-it-%d", stamp)
	supplierID := fmt.Sprintf("sup-inv-it-%d", stamp)
	shipmentID := fmt.Sprintf("ship-inv-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM shipment_items WHERE shipment_id = $1`, shipmentID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, shipmentID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, supplierID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, created_at)
		VALUES ($1, 'Supplier Invoice IT', '', now())
	`, supplierID); err != nil {
		t.Fatalf("insert supplier: %v", err)
	}

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:                 productID,
		Name:               "Kemeja Invoice IT",
		PurchasePriceCents: 2000,
		SalePriceCents:     5000,
		Variants:           domain.VariantStock{"putih": {"M": 5}},
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	shipment, err := s.CommitInvoice(ctx, shipmentID, supplierID, time.Now().UTC(), 0, []domain.InvoiceLine{
		{ProductID: productID, Quantities: domain.VariantStock{"putih": {"M": 5}}},
	})
	if err != nil {
		t.Fatalf("commit invoice: %v", err)
	}
	if shipment.TotalCostCents != 10000 {
		t.Fatalf("expected invoice total 10000, got %d", shipment.TotalCostCents)
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got := product.Variants.Qty("putih", "M"); got != 10 {
		t.Fatalf("expected variant qty 10 after invoice, got %d", got)
	}
}
