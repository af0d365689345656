// Package memory implements the repository against process memory.
// It backs unit tests and dev mode when DATABASE_URL is unset, and
// mirrors the transactional guarantees of the postgres store with a
// single mutex: every multi-record mutation validates fully before the
// first write, so a failed operation leaves no partial state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

type Store struct {
	mu            sync.RWMutex
	products      map[string]domain.Product
	shipmentsByID map[string]domain.Shipment
	defectsByID   map[string]domain.Defect
	salesByID     map[string]domain.Sale
	returnsByID   map[string]domain.SaleReturn
	expensesByID  map[string]domain.DailyExpense
	shiftsByID    map[string]domain.Shift
	customersByID map[string]domain.Customer
	suppliersByID map[string]domain.Supplier
	bookingsByID  map[string]domain.Booking
	staffByName   map[string]domain.StaffMember
	lastShiftEnd  time.Time
}

func New() *Store {
	return &Store{
		products:      make(map[string]domain.Product),
		shipmentsByID: make(map[string]domain.Shipment),
		defectsByID:   make(map[string]domain.Defect),
		salesByID:     make(map[string]domain.Sale),
		returnsByID:   make(map[string]domain.SaleReturn),
		expensesByID:  make(map[string]domain.DailyExpense),
		shiftsByID:    make(map[string]domain.Shift),
		customersByID: make(map[string]domain.Customer),
		suppliersByID: make(map[string]domain.Supplier),
		bookingsByID:  make(map[string]domain.Booking),
		staffByName:   make(map[string]domain.StaffMember),
	}
}

// NewSeeded returns a store pre-loaded with a small boutique catalog
// for dev mode and tests.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	products := []domain.Product{
		{
			ID: "prd-kemeja-01", Name: "Kemeja Linen", PurchasePriceCents: 95000, SalePriceCents: 189000,
			Variants: domain.VariantStock{"putih": {"S": 4, "M": 6, "L": 3}, "biru": {"M": 5, "L": 2}},
		},
		{
			ID: "prd-gaun-01", Name: "Gaun Midi", PurchasePriceCents: 145000, SalePriceCents: 299000,
			Variants: domain.VariantStock{"merah": {"S": 2, "M": 5}, "hitam": {"M": 4, "L": 4}},
		},
		{
			ID: "prd-celana-01", Name: "Celana Kulot", PurchasePriceCents: 80000, SalePriceCents: 159000,
			Variants: domain.VariantStock{"krem": {"S": 6, "M": 6, "L": 6}},
		},
	}
	for _, p := range products {
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}

	s.suppliersByID["sup-garmen-01"] = domain.Supplier{ID: "sup-garmen-01", Name: "Garmen Nusantara", Phone: "0812-0000-0001", CreatedAt: now}
	s.customersByID["cus-ani-01"] = domain.Customer{ID: "cus-ani-01", Name: "Ani", Phone: "0813-0000-0002", CreatedAt: now}
	s.staffByName["dina"] = domain.StaffMember{Username: "dina", BaseSalaryCents: 2500000, CommissionRate: 0.02, Active: true, CreatedAt: now}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, cloneProduct(p))
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneProduct(product)
	return &copied, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createProductLocked(product)
}

func (s *Store) createProductLocked(product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 {
		return nil, store.ErrInvalid
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalid
	}
	if err := validateVariants(product.Variants); err != nil {
		return nil, err
	}

	if product.Variants == nil {
		product.Variants = domain.VariantStock{}
	}
	product.Active = true
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt
	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 {
		return nil, store.ErrInvalid
	}
	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Variant quantities are owned by the stock ledger; a product
	// update never touches them.
	product.Variants = existing.Variants
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) AdjustVariants(_ context.Context, adjustments []domain.VariantAdjustment) ([]domain.VariantQuantity, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.adjustVariantsLocked(adjustments)
}

// adjustVariantsLocked stages every adjustment before writing any of
// them, so an insufficient-stock failure leaves quantities untouched.
func (s *Store) adjustVariantsLocked(adjustments []domain.VariantAdjustment) ([]domain.VariantQuantity, error) {
	type key struct{ id, color, size string }
	staged := make(map[key]int, len(adjustments))
	results := make([]domain.VariantQuantity, 0, len(adjustments))

	for _, adj := range adjustments {
		if adj.ProductID == "" || adj.Color == "" || adj.Size == "" {
			return nil, store.ErrInvalid
		}
		product, exists := s.products[adj.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		k := key{adj.ProductID, adj.Color, adj.Size}
		current, stagedBefore := staged[k]
		if !stagedBefore {
			current = product.Variants.Qty(adj.Color, adj.Size)
		}
		next := current + adj.Delta
		if next < 0 {
			return nil, store.ErrInsufficientStock
		}
		staged[k] = next
		results = append(results, domain.VariantQuantity{
			ProductID: adj.ProductID,
			Color:     adj.Color,
			Size:      adj.Size,
			Qty:       next,
		})
	}

	now := time.Now().UTC()
	for k, qty := range staged {
		product := s.products[k.id]
		if product.Variants == nil {
			product.Variants = domain.VariantStock{}
		}
		product.Variants.Set(k.color, k.size, qty)
		product.UpdatedAt = now
		s.products[k.id] = product
	}
	return results, nil
}

func validateVariants(variants domain.VariantStock) error {
	for _, sizes := range variants {
		for _, qty := range sizes {
			if qty < 0 {
				return store.ErrInvalid
			}
		}
	}
	return nil
}

func cloneProduct(p domain.Product) domain.Product {
	out := p
	out.Variants = p.Variants.Clone()
	return out
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return out
}

func cloneShipment(sh domain.Shipment) domain.Shipment {
	out := sh
	out.Items = append([]domain.ShipmentItem(nil), sh.Items...)
	return out
}

// sortedKeys returns map keys in stable order so flattened shipment
// items come out deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
