package memory

import (
	"context"
	"time"

	"butikpos/backend/internal/domain"
)

// The sync methods reconcile one collection against an incoming
// snapshot: upsert everything present, delete everything absent.
// Records without an id are counted as skipped, never written.

func (s *Store) SyncProducts(_ context.Context, products []domain.Product) (domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.SyncResult{}
	incoming := make(map[string]bool, len(products))
	now := time.Now().UTC()
	for _, p := range products {
		if p.ID == "" {
			result.Skipped++
			continue
		}
		incoming[p.ID] = true
		if existing, exists := s.products[p.ID]; exists && p.CreatedAt.IsZero() {
			p.CreatedAt = existing.CreatedAt
		} else if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.Variants == nil {
			p.Variants = domain.VariantStock{}
		}
		p.UpdatedAt = now
		s.products[p.ID] = cloneProduct(p)
		result.Upserted++
	}
	for id := range s.products {
		if !incoming[id] {
			delete(s.products, id)
			result.Deleted++
		}
	}
	return result, nil
}

func (s *Store) SyncCustomers(_ context.Context, customers []domain.Customer) (domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.SyncResult{}
	incoming := make(map[string]bool, len(customers))
	now := time.Now().UTC()
	for _, c := range customers {
		if c.ID == "" {
			result.Skipped++
			continue
		}
		incoming[c.ID] = true
		if existing, exists := s.customersByID[c.ID]; exists && c.CreatedAt.IsZero() {
			c.CreatedAt = existing.CreatedAt
		} else if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.customersByID[c.ID] = c
		result.Upserted++
	}
	for id := range s.customersByID {
		if !incoming[id] {
			delete(s.customersByID, id)
			result.Deleted++
		}
	}
	return result, nil
}

func (s *Store) SyncSales(_ context.Context, sales []domain.Sale) (domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.SyncResult{}
	incoming := make(map[string]bool, len(sales))
	now := time.Now().UTC()
	for _, sale := range sales {
		if sale.ID == "" {
			result.Skipped++
			continue
		}
		incoming[sale.ID] = true
		if existing, exists := s.salesByID[sale.ID]; exists && sale.CreatedAt.IsZero() {
			sale.CreatedAt = existing.CreatedAt
		} else if sale.CreatedAt.IsZero() {
			sale.CreatedAt = now
		}
		s.salesByID[sale.ID] = cloneSale(sale)
		result.Upserted++
	}
	for id := range s.salesByID {
		if !incoming[id] {
			delete(s.salesByID, id)
			result.Deleted++
		}
	}
	return result, nil
}

func (s *Store) SyncBookings(_ context.Context, bookings []domain.Booking) (domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.SyncResult{}
	incoming := make(map[string]bool, len(bookings))
	now := time.Now().UTC()
	for _, b := range bookings {
		if b.ID == "" {
			result.Skipped++
			continue
		}
		incoming[b.ID] = true
		if b.Status == "" {
			b.Status = domain.BookingStatusOpen
		}
		if existing, exists := s.bookingsByID[b.ID]; exists && b.CreatedAt.IsZero() {
			b.CreatedAt = existing.CreatedAt
		} else if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		s.bookingsByID[b.ID] = b
		result.Upserted++
	}
	for id := range s.bookingsByID {
		if !incoming[id] {
			delete(s.bookingsByID, id)
			result.Deleted++
		}
	}
	return result, nil
}

func (s *Store) SyncExpenses(_ context.Context, expenses []domain.DailyExpense) (domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.SyncResult{}
	incoming := make(map[string]bool, len(expenses))
	now := time.Now().UTC()
	for _, e := range expenses {
		if e.ID == "" {
			result.Skipped++
			continue
		}
		incoming[e.ID] = true
		if existing, exists := s.expensesByID[e.ID]; exists && e.CreatedAt.IsZero() {
			e.CreatedAt = existing.CreatedAt
		} else if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		s.expensesByID[e.ID] = e
		result.Upserted++
	}
	for id := range s.expensesByID {
		if !incoming[id] {
			delete(s.expensesByID, id)
			result.Deleted++
		}
	}
	return result, nil
}
