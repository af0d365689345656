package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

// CreateDefect writes off damaged stock. The decrement and the defect
// record commit together; a quantity below stock on hand rejects the
// whole write-off.
func (s *Service) CreateDefect(ctx context.Context, req domain.DefectCreateRequest) (domain.Defect, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.ProductID == "" || req.Color == "" || req.Size == "" || req.Reason == "" {
		return domain.Defect{}, store.ErrInvalid
	}
	if req.Qty < 1 || req.PurchasePriceCents < 0 {
		return domain.Defect{}, store.ErrInvalid
	}

	var shipmentDate time.Time
	if strings.TrimSpace(req.ShipmentDate) != "" {
		parsed, err := parseDate(req.ShipmentDate)
		if err != nil {
			return domain.Defect{}, err
		}
		shipmentDate = parsed
	}

	// A shipment reference, when given, must point at a real shipment;
	// its date overrides whatever the request carried.
	if req.ShipmentID != "" {
		shipment, err := s.repo.GetShipment(ctx, req.ShipmentID)
		if err != nil {
			return domain.Defect{}, err
		}
		shipmentDate = shipment.Date
		if req.SupplierID == "" {
			req.SupplierID = shipment.SupplierID
		}
	}

	defect, err := s.repo.CreateDefect(ctx, domain.Defect{
		ProductID:          req.ProductID,
		Color:              req.Color,
		Size:               req.Size,
		Qty:                req.Qty,
		PurchasePriceCents: req.PurchasePriceCents,
		Reason:             req.Reason,
		SupplierID:         strings.TrimSpace(req.SupplierID),
		ShipmentID:         req.ShipmentID,
		ShipmentDate:       shipmentDate,
	})
	if err != nil {
		return domain.Defect{}, err
	}

	s.logAction(ctx, "defect_create", defect.ID, fmt.Sprintf("product=%s,qty=%d,reason=%s", defect.ProductID, defect.Qty, defect.Reason))
	return *defect, nil
}

func (s *Service) ListDefects(ctx context.Context, limit int) ([]domain.Defect, error) {
	return s.repo.ListDefects(ctx, limit)
}
