package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

// CreateBooking holds a variant for a customer against a deposit.
// Stock is not reserved; fulfillment goes through the regular sale
// path and can still fail on insufficient stock.
func (s *Service) CreateBooking(ctx context.Context, req domain.BookingCreateRequest) (domain.Booking, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" || req.Color == "" || req.Size == "" || req.Qty < 1 || req.DepositCents < 0 {
		return domain.Booking{}, store.ErrInvalid
	}

	booking, err := s.repo.CreateBooking(ctx, domain.Booking{
		CustomerID:   strings.TrimSpace(req.CustomerID),
		ProductID:    req.ProductID,
		Color:        req.Color,
		Size:         req.Size,
		Qty:          req.Qty,
		DepositCents: req.DepositCents,
		Note:         strings.TrimSpace(req.Note),
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.logAction(ctx, "booking_create", booking.ID, fmt.Sprintf("product=%s,qty=%d,deposit=%d", booking.ProductID, booking.Qty, booking.DepositCents))
	return *booking, nil
}

// FulfillBooking converts an open booking into a sale. The deposit is
// applied as a discount on the sale; the store resolves the booking in
// the same transaction as the sale, so a fulfillment either commits
// both or neither.
func (s *Service) FulfillBooking(ctx context.Context, bookingID string, req domain.BookingFulfillRequest) (domain.Sale, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Sale{}, store.ErrInvalid
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Sale{}, err
	}
	if booking.Status != domain.BookingStatusOpen {
		return domain.Sale{}, store.ErrConflict
	}

	cashier := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		cashier = actor.Name
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		CustomerID:  booking.CustomerID,
		CashierName: cashier,
		Items: []domain.SaleItem{{
			ProductID: booking.ProductID,
			Color:     booking.Color,
			Size:      booking.Size,
			Qty:       booking.Qty,
		}},
		DiscountCents: booking.DepositCents,
		PaymentMethod: req.PaymentMethod,
		BookingID:     booking.ID,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAction(ctx, "booking_fulfill", booking.ID, fmt.Sprintf("sale=%s", sale.ID))
	return *sale, nil
}

func (s *Service) CancelBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Booking{}, store.ErrInvalid
	}

	booking, err := s.repo.ResolveBooking(ctx, bookingID, domain.BookingStatusCancelled, "", time.Now().UTC())
	if err != nil {
		return domain.Booking{}, err
	}
	s.logAction(ctx, "booking_cancel", booking.ID, "")
	return *booking, nil
}

func (s *Service) ListBookings(ctx context.Context, status string, limit int) ([]domain.Booking, error) {
	switch status {
	case "", domain.BookingStatusOpen, domain.BookingStatusFulfilled, domain.BookingStatusCancelled:
	default:
		return nil, store.ErrInvalid
	}
	return s.repo.ListBookings(ctx, status, limit)
}
