package store

import (
	"context"
	"errors"
	"time"

	"butikpos/backend/internal/domain"
)

var (
	// ErrNotFound signals a referenced product or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock signals a decrement larger than the
	// quantity on hand. The offending operation leaves no writes.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict signals a concurrent write collision; the caller
	// may retry the whole operation.
	ErrConflict = errors.New("transaction conflict")
	// ErrInvalid signals a missing identifier or malformed input.
	ErrInvalid = errors.New("invalid record")
)

// Repository is the durable-store collaborator: keyed collections with
// atomic read-validate-write operations. Every method that mutates
// more than one field does so all-or-nothing; implementations re-read
// authoritative state inside their transaction rather than trusting
// the caller's snapshot.
type Repository interface {
	// Products and the stock ledger.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// AdjustVariants applies every adjustment in one transaction and
	// returns the resulting quantities in input order. Any result
	// below zero aborts the whole batch with ErrInsufficientStock.
	AdjustVariants(ctx context.Context, adjustments []domain.VariantAdjustment) ([]domain.VariantQuantity, error)

	// Invoice processor.
	CommitInvoice(ctx context.Context, shipmentID string, supplierID string, date time.Time, shippingCostCents int64, lines []domain.InvoiceLine) (*domain.Shipment, error)
	GetShipment(ctx context.Context, id string) (*domain.Shipment, error)
	ListShipments(ctx context.Context, limit int) ([]domain.Shipment, error)

	// Defect processor.
	CreateDefect(ctx context.Context, defect domain.Defect) (*domain.Defect, error)
	ListDefects(ctx context.Context, limit int) ([]domain.Defect, error)

	// Sales and returns. A sale carrying a BookingID resolves that
	// booking to fulfilled in the same transaction; the sale fails
	// with ErrConflict when the booking is no longer open.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from, to time.Time, limit int) ([]domain.Sale, error)
	CreateSaleReturn(ctx context.Context, ret domain.SaleReturn) (*domain.SaleReturn, error)
	ListSaleReturns(ctx context.Context, from, to time.Time, limit int) ([]domain.SaleReturn, error)

	// Daily expenses.
	CreateExpense(ctx context.Context, expense domain.DailyExpense) (*domain.DailyExpense, error)
	UpdateExpense(ctx context.Context, expense domain.DailyExpense) (*domain.DailyExpense, error)
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, from, to time.Time, limit int) ([]domain.DailyExpense, error)

	// Shift settlement. SettleShift aggregates sales, returns and
	// expenses in [last shift end, now), writes the shift and moves
	// the last-shift-end marker to now, all in one transaction.
	SettleShift(ctx context.Context, shiftID string, closedBy string, actualCents int64, now time.Time) (*domain.Shift, error)
	LastShiftEnd(ctx context.Context) (time.Time, error)
	ListShifts(ctx context.Context, limit int) ([]domain.Shift, error)

	// Customers and suppliers.
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	// Bookings.
	CreateBooking(ctx context.Context, booking domain.Booking) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ResolveBooking(ctx context.Context, id string, status string, saleID string, at time.Time) (*domain.Booking, error)
	ListBookings(ctx context.Context, status string, limit int) ([]domain.Booking, error)

	// Staff.
	CreateStaff(ctx context.Context, staff domain.StaffMember) (*domain.StaffMember, error)
	GetStaff(ctx context.Context, username string) (*domain.StaffMember, error)
	ListStaff(ctx context.Context) ([]domain.StaffMember, error)

	// Bulk sync: upsert every incoming record, delete authoritative
	// ids absent from the incoming set. Best-effort, idempotent, not
	// transactional across the collection. Callers must filter out
	// records without identifiers before calling.
	SyncProducts(ctx context.Context, products []domain.Product) (domain.SyncResult, error)
	SyncCustomers(ctx context.Context, customers []domain.Customer) (domain.SyncResult, error)
	SyncSales(ctx context.Context, sales []domain.Sale) (domain.SyncResult, error)
	SyncBookings(ctx context.Context, bookings []domain.Booking) (domain.SyncResult, error)
	SyncExpenses(ctx context.Context, expenses []domain.DailyExpense) (domain.SyncResult, error)
}
