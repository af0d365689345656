package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

func (s *Store) CommitInvoice(ctx context.Context, shipmentID string, supplierID string, date time.Time, shippingCostCents int64, lines []domain.InvoiceLine) (*domain.Shipment, error) {
	if shipmentID == "" || strings.TrimSpace(supplierID) == "" || len(lines) == 0 || shippingCostCents < 0 {
		return nil, store.ErrInvalid
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	now := time.Now().UTC()
	productIDs := make([]string, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		if line.IsNew {
			if strings.TrimSpace(line.Name) == "" || line.PurchasePriceCents < 0 {
				return nil, store.ErrInvalid
			}
			line.ProductID = xid.New("prd")
			variants, err := json.Marshal(domain.VariantStock{})
			if err != nil {
				return nil, err
			}
			_, err = pgTx.ExecContext(ctx, `
				INSERT INTO products (id, name, purchase_price_cents, sale_price_cents, variants, active, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,true,$6,$6)
			`, line.ProductID, strings.TrimSpace(line.Name), line.PurchasePriceCents, line.SalePriceCents, variants, now)
			if err != nil {
				return nil, txErr(err)
			}
		}
		if line.ProductID == "" {
			return nil, store.ErrInvalid
		}
		productIDs = append(productIDs, line.ProductID)
	}

	// Authoritative names and purchase prices come from the product
	// rows inside this transaction, not the request payload.
	type productInfo struct {
		name               string
		purchasePriceCents int64
	}
	infoByID := make(map[string]productInfo, len(productIDs))
	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, purchase_price_cents
		FROM products
		WHERE id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, txErr(err)
	}
	for rows.Next() {
		var id string
		var info productInfo
		if err := rows.Scan(&id, &info.name, &info.purchasePriceCents); err != nil {
			_ = rows.Close()
			return nil, err
		}
		infoByID[id] = info
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	adjustments := make([]domain.VariantAdjustment, 0, len(lines)*2)
	items := make([]domain.ShipmentItem, 0, len(lines)*2)
	totalCents := int64(0)
	for _, line := range lines {
		info, exists := infoByID[line.ProductID]
		if !exists {
			return nil, store.ErrNotFound
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
					ProductID: line.ProductID,
					Color:     color,
					Size:      size,
					Delta:     qty,
				})
				items = append(items, domain.ShipmentItem{
					ProductID:          line.ProductID,
					ProductName:        info.name,
					Color:              color,
					Size:               size,
					Qty:                qty,
					PurchasePriceCents: info.purchasePriceCents,
				})
				totalCents += int64(qty) * info.purchasePriceCents
			}
		}
	}
	if len(items) == 0 {
		return nil, store.ErrInvalid
	}

	if _, err := adjustVariantsTx(ctx, pgTx, adjustments); err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO shipments (id, supplier_id, shipment_date, shipping_cost_cents, total_cost_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, shipmentID, supplierID, date, shippingCostCents, totalCents, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, txErr(err)
	}
	for _, item := range items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO shipment_items (shipment_id, product_id, product_name, color, size, qty, purchase_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, shipmentID, item.ProductID, item.ProductName, item.Color, item.Size, item.Qty, item.PurchasePriceCents)
		if err != nil {
			return nil, txErr(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txErr(err)
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
	return &shipment, nil
}

func (s *Store) GetShipment(ctx context.Context, id string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_id, shipment_date, shipping_cost_cents, total_cost_cents, created_at
		FROM shipments
		WHERE id = $1
	`, id).Scan(&shipment.ID, &shipment.SupplierID, &shipment.Date, &shipment.ShippingCostCents, &shipment.TotalCostCents, &shipment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shipment.Date = shipment.Date.UTC()
	shipment.CreatedAt = shipment.CreatedAt.UTC()

	items, err := s.shipmentItems(ctx, shipment.ID)
	if err != nil {
		return nil, err
	}
	shipment.Items = items
	return &shipment, nil
}

func (s *Store) ListShipments(ctx context.Context, limit int) ([]domain.Shipment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, shipment_date, shipping_cost_cents, total_cost_cents, created_at
		FROM shipments
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, queryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shipments := make([]domain.Shipment, 0, 16)
	for rows.Next() {
		var sh domain.Shipment
		if err := rows.Scan(&sh.ID, &sh.SupplierID, &sh.Date, &sh.ShippingCostCents, &sh.TotalCostCents, &sh.CreatedAt); err != nil {
			return nil, err
		}
		sh.Date = sh.Date.UTC()
		sh.CreatedAt = sh.CreatedAt.UTC()
		shipments = append(shipments, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range shipments {
		items, err := s.shipmentItems(ctx, shipments[i].ID)
		if err != nil {
			return nil, err
		}
		shipments[i].Items = items
	}
	return shipments, nil
}

func (s *Store) shipmentItems(ctx context.Context, shipmentID string) ([]domain.ShipmentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, color, size, qty, purchase_price_cents
		FROM shipment_items
		WHERE shipment_id = $1
		ORDER BY id ASC
	`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ShipmentItem, 0, 8)
	for rows.Next() {
		var item domain.ShipmentItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Color, &item.Size, &item.Qty, &item.PurchasePriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateDefect(ctx context.Context, defect domain.Defect) (*domain.Defect, error) {
	if defect.ProductID == "" || defect.Color == "" || defect.Size == "" || defect.Qty < 1 {
		return nil, store.ErrInvalid
	}
	if defect.ID == "" {
		defect.ID = xid.New("def")
	}
	if defect.CreatedAt.IsZero() {
		defect.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if defect.PurchasePriceCents == 0 {
		err := pgTx.QueryRowContext(ctx, `
			SELECT purchase_price_cents FROM products WHERE id = $1
		`, defect.ProductID).Scan(&defect.PurchasePriceCents)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
	}

	if _, err := adjustVariantsTx(ctx, pgTx, []domain.VariantAdjustment{{
		ProductID: defect.ProductID,
		Color:     defect.Color,
		Size:      defect.Size,
		Delta:     -defect.Qty,
	}}); err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO defects (id, product_id, color, size, qty, purchase_price_cents, reason, supplier_id, shipment_id, shipment_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, defect.ID, defect.ProductID, defect.Color, defect.Size, defect.Qty, defect.PurchasePriceCents,
		defect.Reason, nullIfEmpty(defect.SupplierID), nullIfEmpty(defect.ShipmentID), nullZeroTime(defect.ShipmentDate), defect.CreatedAt)
	if err != nil {
		return nil, txErr(err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txErr(err)
	}
	created := defect
	return &created, nil
}

func (s *Store) ListDefects(ctx context.Context, limit int) ([]domain.Defect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, color, size, qty, purchase_price_cents, reason,
			COALESCE(supplier_id,''), COALESCE(shipment_id,''), shipment_date, created_at
		FROM defects
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, queryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defects := make([]domain.Defect, 0, 16)
	for rows.Next() {
		var d domain.Defect
		var shipmentDate sql.NullTime
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Color, &d.Size, &d.Qty, &d.PurchasePriceCents, &d.Reason, &d.SupplierID, &d.ShipmentID, &shipmentDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		if shipmentDate.Valid {
			d.ShipmentDate = shipmentDate.Time.UTC()
		}
		d.CreatedAt = d.CreatedAt.UTC()
		defects = append(defects, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defects, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := make([]string, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.ProductID == "" || item.Color == "" || item.Size == "" || item.Qty < 1 {
			return nil, store.ErrInvalid
		}
		ids = append(ids, item.ProductID)
	}

	type saleInfo struct {
		name           string
		salePriceCents int64
	}
	infoByID := make(map[string]saleInfo, len(ids))
	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, sale_price_cents
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, txErr(err)
	}
	for rows.Next() {
		var id string
		var info saleInfo
		if err := rows.Scan(&id, &info.name, &info.salePriceCents); err != nil {
			_ = rows.Close()
			return nil, err
		}
		infoByID[id] = info
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	subtotal := int64(0)
	adjustments := make([]domain.VariantAdjustment, 0, len(sale.Items))
	for i := range sale.Items {
		item := &sale.Items[i]
		info, exists := infoByID[item.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		item.ProductName = info.name
		item.UnitPriceCents = info.salePriceCents
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
	sale.SubtotalCents = subtotal
	sale.TotalCents = subtotal - sale.DiscountCents

	if _, err := adjustVariantsTx(ctx, pgTx, adjustments); err != nil {
		return nil, err
	}

	// A sale against a booking resolves that booking in the same
	// transaction; the row lock makes a second fulfillment lose with
	// ErrConflict instead of committing a duplicate payment.
	if sale.BookingID != "" {
		var status string
		err := pgTx.QueryRowContext(ctx, `
			SELECT status FROM bookings WHERE id = $1 FOR UPDATE
		`, sale.BookingID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, txErr(err)
		}
		if status != domain.BookingStatusOpen {
			return nil, store.ErrConflict
		}
		_, err = pgTx.ExecContext(ctx, `
			UPDATE bookings SET status = $2, sale_id = $3, resolved_at = $4 WHERE id = $1
		`, sale.BookingID, domain.BookingStatusFulfilled, sale.ID, sale.CreatedAt)
		if err != nil {
			return nil, txErr(err)
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, cashier_name, subtotal_cents, discount_cents, total_cents, payment_method, booking_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, nullIfEmpty(sale.CustomerID), sale.CashierName, sale.SubtotalCents, sale.DiscountCents, sale.TotalCents, sale.PaymentMethod, nullIfEmpty(sale.BookingID), sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, txErr(err)
	}
	for _, item := range sale.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, color, size, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, item.ProductID, item.ProductName, item.Color, item.Size, item.Qty, item.UnitPriceCents)
		if err != nil {
			return nil, txErr(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txErr(err)
	}
	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(customer_id,''), cashier_name, subtotal_cents, discount_cents, total_cents, payment_method, COALESCE(booking_id,''), created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.CustomerID, &sale.CashierName, &sale.SubtotalCents, &sale.DiscountCents, &sale.TotalCents, &sale.PaymentMethod, &sale.BookingID, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	items, err := s.saleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from, to time.Time, limit int) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(customer_id,''), cashier_name, subtotal_cents, discount_cents, total_cents, payment_method, COALESCE(booking_id,''), created_at
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, queryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 16)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.CustomerID, &sale.CashierName, &sale.SubtotalCents, &sale.DiscountCents, &sale.TotalCents, &sale.PaymentMethod, &sale.BookingID, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := s.saleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) saleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, color, size, qty, unit_price_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 4)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Color, &item.Size, &item.Qty, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateSaleReturn(ctx context.Context, ret domain.SaleReturn) (*domain.SaleReturn, error) {
	if ret.SaleID == "" || len(ret.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var subtotal, discount int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT subtotal_cents, discount_cents
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, ret.SaleID).Scan(&subtotal, &discount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, txErr(err)
	}

	soldByVariant := make(map[string]domain.SaleItem, 4)
	itemRows, err := pgTx.QueryContext(ctx, `
		SELECT product_id, product_name, color, size, qty, unit_price_cents
		FROM sale_items
		WHERE sale_id = $1
	`, ret.SaleID)
	if err != nil {
		return nil, txErr(err)
	}
	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ProductID, &item.ProductName, &item.Color, &item.Size, &item.Qty, &item.UnitPriceCents); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		k := item.ProductID + "|" + item.Color + "|" + item.Size
		agg := soldByVariant[k]
		item.Qty += agg.Qty
		soldByVariant[k] = item
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	returnedByVariant := make(map[string]int, 4)
	returnedRows, err := pgTx.QueryContext(ctx, `
		SELECT sri.product_id, sri.color, sri.size, COALESCE(SUM(sri.qty),0)::int
		FROM sale_return_items sri
		JOIN sale_returns sr ON sr.id = sri.return_id
		WHERE sr.sale_id = $1
		GROUP BY sri.product_id, sri.color, sri.size
	`, ret.SaleID)
	if err != nil {
		return nil, txErr(err)
	}
	for returnedRows.Next() {
		var productID, color, size string
		var qty int
		if err := returnedRows.Scan(&productID, &color, &size, &qty); err != nil {
			_ = returnedRows.Close()
			return nil, err
		}
		returnedByVariant[productID+"|"+color+"|"+size] = qty
	}
	if err := returnedRows.Err(); err != nil {
		_ = returnedRows.Close()
		return nil, err
	}
	_ = returnedRows.Close()

	returnedValue := int64(0)
	items := make([]domain.SaleItem, 0, len(ret.Items))
	adjustments := make([]domain.VariantAdjustment, 0, len(ret.Items))
	for _, item := range ret.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalid
		}
		k := item.ProductID + "|" + item.Color + "|" + item.Size
		sold, exists := soldByVariant[k]
		if !exists {
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

	if _, err := adjustVariantsTx(ctx, pgTx, adjustments); err != nil {
		return nil, err
	}

	ret.Items = items
	ret.RefundCents = refundNetOfDiscount(returnedValue, subtotal, discount)
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sale_returns (id, sale_id, refund_cents, reason, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ret.ID, ret.SaleID, ret.RefundCents, ret.Reason, ret.CreatedAt)
	if err != nil {
		return nil, txErr(err)
	}
	for _, item := range ret.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_return_items (return_id, product_id, product_name, color, size, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, ret.ID, item.ProductID, item.ProductName, item.Color, item.Size, item.Qty, item.UnitPriceCents)
		if err != nil {
			return nil, txErr(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txErr(err)
	}
	created := ret
	return &created, nil
}

func (s *Store) ListSaleReturns(ctx context.Context, from, to time.Time, limit int) ([]domain.SaleReturn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, refund_cents, reason, created_at
		FROM sale_returns
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, queryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.SaleReturn, 0, 16)
	for rows.Next() {
		var ret domain.SaleReturn
		if err := rows.Scan(&ret.ID, &ret.SaleID, &ret.RefundCents, &ret.Reason, &ret.CreatedAt); err != nil {
			return nil, err
		}
		ret.CreatedAt = ret.CreatedAt.UTC()
		returns = append(returns, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range returns {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT product_id, product_name, color, size, qty, unit_price_cents
			FROM sale_return_items
			WHERE return_id = $1
			ORDER BY id ASC
		`, returns[i].ID)
		if err != nil {
			return nil, err
		}
		items := make([]domain.SaleItem, 0, 4)
		for itemRows.Next() {
			var item domain.SaleItem
			if err := itemRows.Scan(&item.ProductID, &item.ProductName, &item.Color, &item.Size, &item.Qty, &item.UnitPriceCents); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			items = append(items, item)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()
		returns[i].Items = items
	}
	return returns, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.DailyExpense) (*domain.DailyExpense, error) {
	if expense.AmountCents < 1 {
		return nil, store.ErrInvalid
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_expenses (id, amount_cents, note, created_at)
		VALUES ($1,$2,$3,$4)
	`, expense.ID, expense.AmountCents, expense.Note, expense.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.DailyExpense) (*domain.DailyExpense, error) {
	if expense.ID == "" || expense.AmountCents < 1 {
		return nil, store.ErrInvalid
	}

	var updated domain.DailyExpense
	err := s.db.QueryRowContext(ctx, `
		UPDATE daily_expenses
		SET amount_cents = $2, note = $3
		WHERE id = $1
		RETURNING id, amount_cents, note, created_at
	`, expense.ID, expense.AmountCents, expense.Note).Scan(&updated.ID, &updated.AmountCents, &updated.Note, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM daily_expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, from, to time.Time, limit int) ([]domain.DailyExpense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount_cents, note, created_at
		FROM daily_expenses
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, queryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.DailyExpense, 0, 16)
	for rows.Next() {
		var e domain.DailyExpense
		if err := rows.Scan(&e.ID, &e.AmountCents, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) SettleShift(ctx context.Context, shiftID string, closedBy string, actualCents int64, now time.Time) (*domain.Shift, error) {
	if shiftID == "" || strings.TrimSpace(closedBy) == "" {
		return nil, store.ErrInvalid
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	// The marker row serializes concurrent settlements; whichever
	// transaction locks it first defines the window boundary.
	var start time.Time
	err = pgTx.QueryRowContext(ctx, `
		SELECT last_shift_end FROM shift_marker WHERE id = 1 FOR UPDATE
	`).Scan(&start)
	if err != nil {
		return nil, txErr(err)
	}
	start = start.UTC()
	if !now.After(start) {
		return nil, store.ErrConflict
	}

	var summary domain.ShiftSummary
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents),0)::bigint, COUNT(*)::int
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
	`, start, now).Scan(&summary.TotalSalesCents, &summary.SaleCount)
	if err != nil {
		return nil, txErr(err)
	}
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(refund_cents),0)::bigint, COUNT(*)::int
		FROM sale_returns
		WHERE created_at >= $1 AND created_at < $2
	`, start, now).Scan(&summary.TotalReturnsCents, &summary.ReturnCount)
	if err != nil {
		return nil, txErr(err)
	}
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint, COUNT(*)::int
		FROM daily_expenses
		WHERE created_at >= $1 AND created_at < $2
	`, start, now).Scan(&summary.TotalExpensesCents, &summary.ExpenseCount)
	if err != nil {
		return nil, txErr(err)
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
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO shifts (
			id, started_at, ended_at, closed_by,
			total_sales_cents, total_returns_cents, total_expenses_cents, expected_cents,
			sale_count, return_count, expense_count,
			actual_cents, difference_cents, reconciliation
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, shift.ID, shift.StartedAt, shift.EndedAt, shift.ClosedBy,
		summary.TotalSalesCents, summary.TotalReturnsCents, summary.TotalExpensesCents, summary.ExpectedInDrawerCents,
		summary.SaleCount, summary.ReturnCount, summary.ExpenseCount,
		shift.Reconciliation.ActualCents, shift.Reconciliation.DifferenceCents, shift.Reconciliation.Type)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, txErr(err)
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE shift_marker SET last_shift_end = $1 WHERE id = 1
	`, now)
	if err != nil {
		return nil, txErr(err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txErr(err)
	}
	return &shift, nil
}

func (s *Store) LastShiftEnd(ctx context.Context) (time.Time, error) {
	var end time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT last_shift_end FROM shift_marker WHERE id = 1
	`).Scan(&end)
	if err != nil {
		return time.Time{}, err
	}
	return end.UTC(), nil
}

func (s *Store) ListShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, closed_by,
			total_sales_cents, total_returns_cents, total_expenses_cents, expected_cents,
			sale_count, return_count, expense_count,
			actual_cents, difference_cents, reconciliation
		FROM shifts
		ORDER BY ended_at DESC
		LIMIT $1
	`, queryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]domain.Shift, 0, 16)
	for rows.Next() {
		var shift domain.Shift
		if err := rows.Scan(&shift.ID, &shift.StartedAt, &shift.EndedAt, &shift.ClosedBy,
			&shift.Summary.TotalSalesCents, &shift.Summary.TotalReturnsCents, &shift.Summary.TotalExpensesCents, &shift.Summary.ExpectedInDrawerCents,
			&shift.Summary.SaleCount, &shift.Summary.ReturnCount, &shift.Summary.ExpenseCount,
			&shift.Reconciliation.ActualCents, &shift.Reconciliation.DifferenceCents, &shift.Reconciliation.Type); err != nil {
			return nil, err
		}
		shift.StartedAt = shift.StartedAt.UTC()
		shift.EndedAt = shift.EndedAt.UTC()
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

func refundNetOfDiscount(returnedValue, saleSubtotal, saleDiscount int64) int64 {
	if saleSubtotal < 1 || saleDiscount < 1 {
		return returnedValue
	}
	share := int64(math.Round(float64(saleDiscount) * float64(returnedValue) / float64(saleSubtotal)))
	return returnedValue - share
}

func nullZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
