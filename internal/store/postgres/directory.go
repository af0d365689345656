package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalid
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, notes, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, customer.ID, strings.TrimSpace(customer.Name), customer.Phone, customer.Notes, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalid
	}

	var updated domain.Customer
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, notes = $4
		WHERE id = $1
		RETURNING id, name, phone, notes, created_at
	`, customer.ID, strings.TrimSpace(customer.Name), customer.Phone, customer.Notes).Scan(
		&updated.ID, &updated.Name, &updated.Phone, &updated.Notes, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, notes, created_at
		FROM customers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalid
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, supplier.ID, strings.TrimSpace(supplier.Name), supplier.Phone, supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, created_at
		FROM suppliers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt); err != nil {
			return nil, err
		}
		sup.CreatedAt = sup.CreatedAt.UTC()
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking domain.Booking) (*domain.Booking, error) {
	if booking.ProductID == "" || booking.Color == "" || booking.Size == "" || booking.Qty < 1 || booking.DepositCents < 0 {
		return nil, store.ErrInvalid
	}
	if booking.ID == "" {
		booking.ID = xid.New("bkg")
	}
	booking.Status = domain.BookingStatusOpen
	booking.SaleID = ""
	booking.ResolvedAt = nil
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
	`, booking.ProductID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, customer_id, product_id, color, size, qty, deposit_cents, status, note, sale_id, created_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULL,$10,NULL)
	`, booking.ID, nullIfEmpty(booking.CustomerID), booking.ProductID, booking.Color, booking.Size,
		booking.Qty, booking.DepositCents, booking.Status, booking.Note, booking.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := booking
	return &created, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(customer_id,''), product_id, color, size, qty, deposit_cents, status, note, COALESCE(sale_id,''), created_at, resolved_at
		FROM bookings
		WHERE id = $1
	`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *Store) ResolveBooking(ctx context.Context, id string, status string, saleID string, at time.Time) (*domain.Booking, error) {
	if status != domain.BookingStatusFulfilled && status != domain.BookingStatusCancelled {
		return nil, store.ErrInvalid
	}

	// Resolution is single-shot: the status guard in the WHERE clause
	// makes a second resolve miss.
	row := s.db.QueryRowContext(ctx, `
		UPDATE bookings
		SET status = $2, sale_id = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
		RETURNING id, COALESCE(customer_id,''), product_id, color, size, qty, deposit_cents, status, note, COALESCE(sale_id,''), created_at, resolved_at
	`, id, status, nullIfEmpty(saleID), at, domain.BookingStatusOpen)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := s.GetBooking(ctx, id); getErr == nil {
				return nil, store.ErrConflict
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *Store) ListBookings(ctx context.Context, status string, limit int) ([]domain.Booking, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(customer_id,''), product_id, color, size, qty, deposit_cents, status, note, COALESCE(sale_id,''), created_at, resolved_at
		FROM bookings
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0, limit)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (domain.Booking, error) {
	var booking domain.Booking
	var resolvedAt sql.NullTime
	err := row.Scan(&booking.ID, &booking.CustomerID, &booking.ProductID, &booking.Color, &booking.Size,
		&booking.Qty, &booking.DepositCents, &booking.Status, &booking.Note, &booking.SaleID,
		&booking.CreatedAt, &resolvedAt)
	if err != nil {
		return booking, err
	}
	booking.CreatedAt = booking.CreatedAt.UTC()
	if resolvedAt.Valid {
		at := resolvedAt.Time.UTC()
		booking.ResolvedAt = &at
	}
	return booking, nil
}

func (s *Store) CreateStaff(ctx context.Context, staff domain.StaffMember) (*domain.StaffMember, error) {
	staff.Username = strings.ToLower(strings.TrimSpace(staff.Username))
	if staff.Username == "" || staff.BaseSalaryCents < 0 || staff.CommissionRate < 0 {
		return nil, store.ErrInvalid
	}
	staff.Active = true
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (username, base_salary_cents, commission_rate, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, staff.Username, staff.BaseSalaryCents, staff.CommissionRate, staff.Active, staff.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := staff
	return &created, nil
}

func (s *Store) GetStaff(ctx context.Context, username string) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	err := s.db.QueryRowContext(ctx, `
		SELECT username, base_salary_cents, commission_rate, active, created_at
		FROM staff
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&staff.Username, &staff.BaseSalaryCents, &staff.CommissionRate, &staff.Active, &staff.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	staff.CreatedAt = staff.CreatedAt.UTC()
	return &staff, nil
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, base_salary_cents, commission_rate, active, created_at
		FROM staff
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.StaffMember, 0, 8)
	for rows.Next() {
		var m domain.StaffMember
		if err := rows.Scan(&m.Username, &m.BaseSalaryCents, &m.CommissionRate, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
