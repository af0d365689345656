package service

import (
	"context"
	"log"

	"butikpos/backend/internal/domain"
)

// SyncWorkingSet reconciles the client's in-memory working set with
// durable storage, one collection at a time. Upserts win over existing
// rows, ids absent from the snapshot are deleted, records without an
// id are skipped and logged. Re-sending the same snapshot is a no-op
// beyond the upsert writes.
//
// A nil collection means the client did not send it and is left
// untouched; an empty, non-nil slice is an authoritative "nothing
// remains" and deletes every durable row in that collection.
//
// Collections are processed independently: a failure in one leaves the
// collections before it synced, so the caller can retry the whole set.
func (s *Service) SyncWorkingSet(ctx context.Context, ws domain.WorkingSet) (domain.SyncReport, error) {
	report := domain.SyncReport{}

	if ws.Products != nil {
		result, err := s.repo.SyncProducts(ctx, ws.Products)
		report.Products = result
		if err != nil {
			return report, err
		}
	}
	if ws.Customers != nil {
		result, err := s.repo.SyncCustomers(ctx, ws.Customers)
		report.Customers = result
		if err != nil {
			return report, err
		}
	}
	if ws.Sales != nil {
		result, err := s.repo.SyncSales(ctx, ws.Sales)
		report.Sales = result
		if err != nil {
			return report, err
		}
	}
	if ws.Bookings != nil {
		result, err := s.repo.SyncBookings(ctx, ws.Bookings)
		report.Bookings = result
		if err != nil {
			return report, err
		}
	}
	if ws.Expenses != nil {
		result, err := s.repo.SyncExpenses(ctx, ws.Expenses)
		report.Expenses = result
		if err != nil {
			return report, err
		}
	}

	skipped := report.Products.Skipped + report.Customers.Skipped + report.Sales.Skipped + report.Bookings.Skipped + report.Expenses.Skipped
	if skipped > 0 {
		log.Printf("[service] WARN: sync skipped %d records without ids", skipped)
	}
	s.logAction(ctx, "working_set_sync", "", "")
	return report, nil
}
