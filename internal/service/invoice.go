package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

// CommitInvoice turns a supplier invoice into one shipment record: new
// products created, variant quantities incremented and the total
// recomputed from authoritative purchase prices, all atomically.
func (s *Service) CommitInvoice(ctx context.Context, req domain.InvoiceCommitRequest) (domain.Shipment, error) {
	req.SupplierID = strings.TrimSpace(req.SupplierID)
	if req.SupplierID == "" || len(req.Lines) == 0 {
		return domain.Shipment{}, store.ErrInvalid
	}
	if req.ShippingCostCents < 0 {
		return domain.Shipment{}, store.ErrInvalid
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return domain.Shipment{}, err
	}
	for _, line := range req.Lines {
		if !line.IsNew && line.ProductID == "" {
			return domain.Shipment{}, store.ErrInvalid
		}
		if len(line.Quantities) == 0 {
			return domain.Shipment{}, store.ErrInvalid
		}
	}

	shipmentID := shipmentIDFor(date)
	shipment, err := s.repo.CommitInvoice(ctx, shipmentID, req.SupplierID, date, req.ShippingCostCents, req.Lines)
	if err != nil {
		return domain.Shipment{}, err
	}

	s.logAction(ctx, "invoice_commit", shipment.ID, fmt.Sprintf("supplier=%s,total=%d,items=%d", shipment.SupplierID, shipment.TotalCostCents, len(shipment.Items)))
	return *shipment, nil
}

func (s *Service) GetShipment(ctx context.Context, id string) (domain.Shipment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Shipment{}, store.ErrInvalid
	}
	shipment, err := s.repo.GetShipment(ctx, id)
	if err != nil {
		return domain.Shipment{}, err
	}
	return *shipment, nil
}

func (s *Service) ListShipments(ctx context.Context, limit int) ([]domain.Shipment, error) {
	return s.repo.ListShipments(ctx, limit)
}

// shipmentIDFor derives the shipment id from the invoice date plus a
// random suffix so two invoices on the same day never collide.
func shipmentIDFor(date time.Time) string {
	return fmt.Sprintf("ship-%s-%s", date.Format("20060102"), xid.Suffix())
}
