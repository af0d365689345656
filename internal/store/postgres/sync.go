package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"butikpos/backend/internal/domain"
)

// The sync methods reconcile one collection against an incoming
// snapshot: upsert everything present, delete everything absent.
// Each collection runs in its own transaction; re-running the same
// snapshot converges to the same rows.

func (s *Store) SyncProducts(ctx context.Context, products []domain.Product) (domain.SyncResult, error) {
	result := domain.SyncResult{}
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer func() { _ = pgTx.Rollback() }()

	now := time.Now().UTC()
	ids := make([]string, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			result.Skipped++
			continue
		}
		if p.Variants == nil {
			p.Variants = domain.VariantStock{}
		}
		variants, err := json.Marshal(p.Variants)
		if err != nil {
			return result, err
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO products (id, name, purchase_price_cents, sale_price_cents, variants, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id)
			DO UPDATE SET name = EXCLUDED.name, purchase_price_cents = EXCLUDED.purchase_price_cents,
				sale_price_cents = EXCLUDED.sale_price_cents, variants = EXCLUDED.variants,
				active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
		`, p.ID, p.Name, p.PurchasePriceCents, p.SalePriceCents, variants, p.Active, p.CreatedAt, now)
		if err != nil {
			return result, txErr(err)
		}
		result.Upserted++
		ids = append(ids, p.ID)
	}

	deleted, err := deleteAbsent(ctx, pgTx, "products", ids)
	if err != nil {
		return result, err
	}
	result.Deleted = deleted

	if err := pgTx.Commit(); err != nil {
		return result, txErr(err)
	}
	return result, nil
}

func (s *Store) SyncCustomers(ctx context.Context, customers []domain.Customer) (domain.SyncResult, error) {
	result := domain.SyncResult{}
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer func() { _ = pgTx.Rollback() }()

	now := time.Now().UTC()
	ids := make([]string, 0, len(customers))
	for _, c := range customers {
		if c.ID == "" {
			result.Skipped++
			continue
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO customers (id, name, phone, notes, created_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id)
			DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone, notes = EXCLUDED.notes
		`, c.ID, c.Name, c.Phone, c.Notes, c.CreatedAt)
		if err != nil {
			return result, txErr(err)
		}
		result.Upserted++
		ids = append(ids, c.ID)
	}

	deleted, err := deleteAbsent(ctx, pgTx, "customers", ids)
	if err != nil {
		return result, err
	}
	result.Deleted = deleted

	if err := pgTx.Commit(); err != nil {
		return result, txErr(err)
	}
	return result, nil
}

func (s *Store) SyncSales(ctx context.Context, sales []domain.Sale) (domain.SyncResult, error) {
	result := domain.SyncResult{}
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer func() { _ = pgTx.Rollback() }()

	now := time.Now().UTC()
	ids := make([]string, 0, len(sales))
	for _, sale := range sales {
		if sale.ID == "" {
			result.Skipped++
			continue
		}
		if sale.CreatedAt.IsZero() {
			sale.CreatedAt = now
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO sales (id, customer_id, cashier_name, subtotal_cents, discount_cents, total_cents, payment_method, booking_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id)
			DO UPDATE SET customer_id = EXCLUDED.customer_id, cashier_name = EXCLUDED.cashier_name,
				subtotal_cents = EXCLUDED.subtotal_cents, discount_cents = EXCLUDED.discount_cents,
				total_cents = EXCLUDED.total_cents, payment_method = EXCLUDED.payment_method,
				booking_id = EXCLUDED.booking_id
		`, sale.ID, nullIfEmpty(sale.CustomerID), sale.CashierName, sale.SubtotalCents, sale.DiscountCents,
			sale.TotalCents, sale.PaymentMethod, nullIfEmpty(sale.BookingID), sale.CreatedAt)
		if err != nil {
			return result, txErr(err)
		}

		// Item rows are replaced wholesale; the snapshot wins.
		if _, err := pgTx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, sale.ID); err != nil {
			return result, txErr(err)
		}
		for _, item := range sale.Items {
			_, err := pgTx.ExecContext(ctx, `
				INSERT INTO sale_items (sale_id, product_id, product_name, color, size, qty, unit_price_cents)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, sale.ID, item.ProductID, item.ProductName, item.Color, item.Size, item.Qty, item.UnitPriceCents)
			if err != nil {
				return result, txErr(err)
			}
		}
		result.Upserted++
		ids = append(ids, sale.ID)
	}

	deleted, err := deleteAbsent(ctx, pgTx, "sales", ids)
	if err != nil {
		return result, err
	}
	result.Deleted = deleted

	if err := pgTx.Commit(); err != nil {
		return result, txErr(err)
	}
	return result, nil
}

func (s *Store) SyncBookings(ctx context.Context, bookings []domain.Booking) (domain.SyncResult, error) {
	result := domain.SyncResult{}
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer func() { _ = pgTx.Rollback() }()

	now := time.Now().UTC()
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if b.ID == "" {
			result.Skipped++
			continue
		}
		if b.Status == "" {
			b.Status = domain.BookingStatusOpen
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO bookings (id, customer_id, product_id, color, size, qty, deposit_cents, status, note, sale_id, created_at, resolved_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id)
			DO UPDATE SET customer_id = EXCLUDED.customer_id, product_id = EXCLUDED.product_id,
				color = EXCLUDED.color, size = EXCLUDED.size, qty = EXCLUDED.qty,
				deposit_cents = EXCLUDED.deposit_cents, status = EXCLUDED.status, note = EXCLUDED.note,
				sale_id = EXCLUDED.sale_id, resolved_at = EXCLUDED.resolved_at
		`, b.ID, nullIfEmpty(b.CustomerID), b.ProductID, b.Color, b.Size, b.Qty, b.DepositCents,
			b.Status, b.Note, nullIfEmpty(b.SaleID), b.CreatedAt, nullTime(b.ResolvedAt))
		if err != nil {
			return result, txErr(err)
		}
		result.Upserted++
		ids = append(ids, b.ID)
	}

	deleted, err := deleteAbsent(ctx, pgTx, "bookings", ids)
	if err != nil {
		return result, err
	}
	result.Deleted = deleted

	if err := pgTx.Commit(); err != nil {
		return result, txErr(err)
	}
	return result, nil
}

func (s *Store) SyncExpenses(ctx context.Context, expenses []domain.DailyExpense) (domain.SyncResult, error) {
	result := domain.SyncResult{}
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer func() { _ = pgTx.Rollback() }()

	now := time.Now().UTC()
	ids := make([]string, 0, len(expenses))
	for _, e := range expenses {
		if e.ID == "" {
			result.Skipped++
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO daily_expenses (id, amount_cents, note, created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id)
			DO UPDATE SET amount_cents = EXCLUDED.amount_cents, note = EXCLUDED.note
		`, e.ID, e.AmountCents, e.Note, e.CreatedAt)
		if err != nil {
			return result, txErr(err)
		}
		result.Upserted++
		ids = append(ids, e.ID)
	}

	deleted, err := deleteAbsent(ctx, pgTx, "daily_expenses", ids)
	if err != nil {
		return result, err
	}
	result.Deleted = deleted

	if err := pgTx.Commit(); err != nil {
		return result, txErr(err)
	}
	return result, nil
}

func deleteAbsent(ctx context.Context, pgTx *sql.Tx, table string, keepIDs []string) (int, error) {
	res, err := pgTx.ExecContext(ctx, `DELETE FROM `+table+` WHERE NOT (id = ANY($1))`, keepIDs)
	if err != nil {
		return 0, txErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
