package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if _, exists := s.customersByID[customer.ID]; exists {
		return nil, store.ErrInvalid
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.customersByID[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].Name == customers[j].Name {
			return customers[i].ID < customers[j].ID
		}
		return customers[i].Name < customers[j].Name
	})
	return customers, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if _, exists := s.suppliersByID[supplier.ID]; exists {
		return nil, store.ErrInvalid
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	s.suppliersByID[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		suppliers = append(suppliers, sup)
	}
	sort.Slice(suppliers, func(i, j int) bool {
		if suppliers[i].Name == suppliers[j].Name {
			return suppliers[i].ID < suppliers[j].ID
		}
		return suppliers[i].Name < suppliers[j].Name
	})
	return suppliers, nil
}

func (s *Store) CreateBooking(_ context.Context, booking domain.Booking) (*domain.Booking, error) {
	if booking.ProductID == "" || booking.Color == "" || booking.Size == "" || booking.Qty < 1 || booking.DepositCents < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[booking.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if booking.CustomerID != "" {
		if _, exists := s.customersByID[booking.CustomerID]; !exists {
			return nil, store.ErrNotFound
		}
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
	s.bookingsByID[booking.ID] = booking
	created := booking
	return &created, nil
}

func (s *Store) GetBooking(_ context.Context, id string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, exists := s.bookingsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := booking
	return &copied, nil
}

func (s *Store) ResolveBooking(_ context.Context, id string, status string, saleID string, at time.Time) (*domain.Booking, error) {
	if status != domain.BookingStatusFulfilled && status != domain.BookingStatusCancelled {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	booking, exists := s.bookingsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	// Bookings are resolved exactly once.
	if booking.Status != domain.BookingStatusOpen {
		return nil, store.ErrConflict
	}

	booking.Status = status
	booking.SaleID = saleID
	resolvedAt := at
	booking.ResolvedAt = &resolvedAt
	s.bookingsByID[id] = booking
	resolved := booking
	return &resolved, nil
}

func (s *Store) ListBookings(_ context.Context, status string, limit int) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]domain.Booking, 0, len(s.bookingsByID))
	for _, b := range s.bookingsByID {
		if status != "" && b.Status != status {
			continue
		}
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (s *Store) CreateStaff(_ context.Context, staff domain.StaffMember) (*domain.StaffMember, error) {
	staff.Username = strings.ToLower(strings.TrimSpace(staff.Username))
	if staff.Username == "" || staff.BaseSalaryCents < 0 || staff.CommissionRate < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.staffByName[staff.Username]; exists {
		return nil, store.ErrInvalid
	}
	staff.Active = true
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = time.Now().UTC()
	}
	s.staffByName[staff.Username] = staff
	created := staff
	return &created, nil
}

func (s *Store) GetStaff(_ context.Context, username string) (*domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	staff, exists := s.staffByName[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := staff
	return &copied, nil
}

func (s *Store) ListStaff(_ context.Context) ([]domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]domain.StaffMember, 0, len(s.staffByName))
	for _, m := range s.staffByName {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Username < members[j].Username
	})
	return members, nil
}
