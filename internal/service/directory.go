package service

import (
	"context"
	"strings"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

func (s *Service) CreateCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return domain.Customer{}, store.ErrInvalid
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAction(ctx, "customer_create", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, customer domain.Customer) (domain.Customer, error) {
	customer.ID = strings.TrimSpace(id)
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.ID == "" || customer.Name == "" {
		return domain.Customer{}, store.ErrInvalid
	}
	updated, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *updated, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, supplier domain.Supplier) (domain.Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return domain.Supplier{}, store.ErrInvalid
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAction(ctx, "supplier_create", created.ID, created.Name)
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateStaff(ctx context.Context, staff domain.StaffMember) (domain.StaffMember, error) {
	staff.Username = strings.ToLower(strings.TrimSpace(staff.Username))
	if staff.Username == "" || staff.BaseSalaryCents < 0 || staff.CommissionRate < 0 || staff.CommissionRate > 1 {
		return domain.StaffMember{}, store.ErrInvalid
	}
	created, err := s.repo.CreateStaff(ctx, staff)
	if err != nil {
		return domain.StaffMember{}, err
	}
	s.logAction(ctx, "staff_create", created.Username, "")
	return *created, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	return s.repo.ListStaff(ctx)
}
