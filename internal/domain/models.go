package domain

import "time"

// VariantStock maps color -> size -> quantity on hand.
type VariantStock map[string]map[string]int

// Qty returns the quantity for a color/size pair, zero when absent.
func (v VariantStock) Qty(color, size string) int {
	if v == nil {
		return 0
	}
	return v[color][size]
}

// Set writes a quantity, allocating nested maps as needed.
func (v VariantStock) Set(color, size string, qty int) {
	if v[color] == nil {
		v[color] = make(map[string]int)
	}
	v[color][size] = qty
}

// Clone returns a deep copy so callers can mutate safely.
func (v VariantStock) Clone() VariantStock {
	out := make(VariantStock, len(v))
	for color, sizes := range v {
		out[color] = make(map[string]int, len(sizes))
		for size, qty := range sizes {
			out[color][size] = qty
		}
	}
	return out
}

type Product struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	PurchasePriceCents int64        `json:"purchase_price_cents"`
	SalePriceCents     int64        `json:"sale_price_cents"`
	Variants           VariantStock `json:"variants"`
	Active             bool         `json:"active"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name               string       `json:"name"`
	PurchasePriceCents int64        `json:"purchase_price_cents"`
	SalePriceCents     int64        `json:"sale_price_cents"`
	Variants           VariantStock `json:"variants,omitempty"`
}

type ProductUpdateRequest struct {
	Name               *string `json:"name,omitempty"`
	PurchasePriceCents *int64  `json:"purchase_price_cents,omitempty"`
	SalePriceCents     *int64  `json:"sale_price_cents,omitempty"`
	Active             *bool   `json:"active,omitempty"`
}

// VariantAdjustment is the typed stock-ledger update descriptor: one
// delta against one product variant. Negative deltas that would drive
// the quantity below zero are rejected atomically with the whole batch.
type VariantAdjustment struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Delta     int    `json:"delta"`
}

// VariantQuantity reports the post-adjustment quantity of one variant.
type VariantQuantity struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
}

type ShipmentItem struct {
	ProductID          string `json:"product_id"`
	ProductName        string `json:"product_name"`
	Color              string `json:"color"`
	Size               string `json:"size"`
	Qty                int    `json:"qty"`
	PurchasePriceCents int64  `json:"purchase_price_cents"`
}

// Shipment records a committed supplier invoice. Immutable once
// committed; corrections happen through defect entries.
type Shipment struct {
	ID                string         `json:"id"`
	SupplierID        string         `json:"supplier_id"`
	Date              time.Time      `json:"date"`
	ShippingCostCents int64          `json:"shipping_cost_cents"`
	Items             []ShipmentItem `json:"items"`
	TotalCostCents    int64          `json:"total_cost_cents"`
	CreatedAt         time.Time      `json:"created_at"`
}

// InvoiceLine is one incoming invoice row. Either ProductID references
// an existing product, or IsNew is set and the product payload fields
// describe a product to create inside the same transaction.
type InvoiceLine struct {
	ProductID          string       `json:"product_id,omitempty"`
	IsNew              bool         `json:"is_new,omitempty"`
	Name               string       `json:"name,omitempty"`
	PurchasePriceCents int64        `json:"purchase_price_cents"`
	SalePriceCents     int64        `json:"sale_price_cents,omitempty"`
	Quantities         VariantStock `json:"quantities"`
}

type InvoiceCommitRequest struct {
	SupplierID        string        `json:"supplier_id"`
	Date              string        `json:"date"`
	ShippingCostCents int64         `json:"shipping_cost_cents"`
	Lines             []InvoiceLine `json:"lines"`
}

// Defect is a write-off of damaged or supplier-returned stock. Created
// exactly once per event, never updated. ShipmentID is an explicit
// reference to the originating shipment; supplier id and shipment date
// are kept alongside for supplier-facing paperwork.
type Defect struct {
	ID                 string    `json:"id"`
	ProductID          string    `json:"product_id"`
	Color              string    `json:"color"`
	Size               string    `json:"size"`
	Qty                int       `json:"qty"`
	PurchasePriceCents int64     `json:"purchase_price_cents"`
	Reason             string    `json:"reason"`
	SupplierID         string    `json:"supplier_id"`
	ShipmentID         string    `json:"shipment_id,omitempty"`
	ShipmentDate       time.Time `json:"shipment_date"`
	CreatedAt          time.Time `json:"created_at"`
}

type DefectCreateRequest struct {
	ProductID          string `json:"product_id"`
	Color              string `json:"color"`
	Size               string `json:"size"`
	Qty                int    `json:"qty"`
	PurchasePriceCents int64  `json:"purchase_price_cents"`
	Reason             string `json:"reason"`
	SupplierID         string `json:"supplier_id"`
	ShipmentID         string `json:"shipment_id,omitempty"`
	ShipmentDate       string `json:"shipment_date,omitempty"`
}

type SaleItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Color          string `json:"color"`
	Size           string `json:"size"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Sale struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CashierName   string     `json:"cashier_name"`
	Items         []SaleItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCents    int64      `json:"total_cents"`
	PaymentMethod string     `json:"payment_method"`
	BookingID     string     `json:"booking_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SaleCreateRequest struct {
	CustomerID    string     `json:"customer_id,omitempty"`
	Items         []SaleItem `json:"items"`
	DiscountCents int64      `json:"discount_cents"`
	PaymentMethod string     `json:"payment_method"`
}

// SaleReturn records items handed back by a customer. RefundCents is
// the returned value net of the proportional share of the original
// sale discount; stock goes back to the variant it came from.
type SaleReturn struct {
	ID          string     `json:"id"`
	SaleID      string     `json:"sale_id"`
	Items       []SaleItem `json:"items"`
	RefundCents int64      `json:"refund_cents"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SaleReturnRequest struct {
	SaleID string       `json:"sale_id"`
	Items  []ReturnLine `json:"items"`
	Reason string       `json:"reason"`
}

type ReturnLine struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
}

type DailyExpense struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

// ShiftSummary is the financial aggregate of a settlement window.
type ShiftSummary struct {
	TotalSalesCents       int64 `json:"total_sales_cents"`
	TotalReturnsCents     int64 `json:"total_returns_cents"`
	TotalExpensesCents    int64 `json:"total_expenses_cents"`
	ExpectedInDrawerCents int64 `json:"expected_in_drawer_cents"`
	SaleCount             int   `json:"sale_count"`
	ReturnCount           int   `json:"return_count"`
	ExpenseCount          int   `json:"expense_count"`
}

const (
	ReconciliationExact = "exact"
	ReconciliationOver  = "over"
	ReconciliationShort = "short"
)

type ShiftReconciliation struct {
	ActualCents     int64  `json:"actual_cents"`
	DifferenceCents int64  `json:"difference_cents"`
	Type            string `json:"type"`
}

// Reconcile classifies the counted drawer amount against the expected
// amount. Amounts are integer cents, so "exact" means difference zero.
func Reconcile(actualCents, expectedCents int64) ShiftReconciliation {
	rec := ShiftReconciliation{
		ActualCents:     actualCents,
		DifferenceCents: actualCents - expectedCents,
		Type:            ReconciliationExact,
	}
	switch {
	case rec.DifferenceCents > 0:
		rec.Type = ReconciliationOver
	case rec.DifferenceCents < 0:
		rec.Type = ReconciliationShort
	}
	return rec
}

// Shift is a closed settlement window. Terminal once written; the
// process-wide last-shift-end marker advances to EndedAt in the same
// transaction that commits the shift.
type Shift struct {
	ID             string              `json:"id"`
	StartedAt      time.Time           `json:"started_at"`
	EndedAt        time.Time           `json:"ended_at"`
	ClosedBy       string              `json:"closed_by"`
	Summary        ShiftSummary        `json:"summary"`
	Reconciliation ShiftReconciliation `json:"reconciliation"`
}

type ShiftCloseRequest struct {
	ActualCents int64 `json:"actual_cents"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	BookingStatusOpen      = "open"
	BookingStatusFulfilled = "fulfilled"
	BookingStatusCancelled = "cancelled"
)

// Booking holds a variant for a customer against a deposit. Stock is
// not reserved; fulfillment goes through the regular sale path and can
// still fail on insufficient stock.
type Booking struct {
	ID           string     `json:"id"`
	CustomerID   string     `json:"customer_id"`
	ProductID    string     `json:"product_id"`
	Color        string     `json:"color"`
	Size         string     `json:"size"`
	Qty          int        `json:"qty"`
	DepositCents int64      `json:"deposit_cents"`
	Status       string     `json:"status"`
	Note         string     `json:"note,omitempty"`
	SaleID       string     `json:"sale_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type BookingCreateRequest struct {
	CustomerID   string `json:"customer_id"`
	ProductID    string `json:"product_id"`
	Color        string `json:"color"`
	Size         string `json:"size"`
	Qty          int    `json:"qty"`
	DepositCents int64  `json:"deposit_cents"`
	Note         string `json:"note"`
}

type BookingFulfillRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type StaffMember struct {
	Username        string    `json:"username"`
	BaseSalaryCents int64     `json:"base_salary_cents"`
	CommissionRate  float64   `json:"commission_rate"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

type SalaryReport struct {
	Username             string `json:"username"`
	PeriodStart          string `json:"period_start"`
	PeriodEnd            string `json:"period_end"`
	BaseSalaryCents      int64  `json:"base_salary_cents"`
	AttributedSalesCents int64  `json:"attributed_sales_cents"`
	CommissionCents      int64  `json:"commission_cents"`
	TotalCents           int64  `json:"total_cents"`
	ShiftsClosed         int    `json:"shifts_closed"`
}

// WorkingSet is the in-memory session snapshot reconciled to durable
// storage by Bulk Sync. Populated at session start by the UI layer,
// discarded at session end.
type WorkingSet struct {
	Products  []Product      `json:"products,omitempty"`
	Customers []Customer     `json:"customers,omitempty"`
	Sales     []Sale         `json:"sales,omitempty"`
	Bookings  []Booking      `json:"bookings,omitempty"`
	Expenses  []DailyExpense `json:"expenses,omitempty"`
}

// SyncResult counts the outcome of reconciling one collection.
type SyncResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
	Skipped  int `json:"skipped"`
}

type SyncReport struct {
	Products  SyncResult `json:"products"`
	Customers SyncResult `json:"customers"`
	Sales     SyncResult `json:"sales"`
	Bookings  SyncResult `json:"bookings"`
	Expenses  SyncResult `json:"expenses"`
}

// SessionCart is the per-terminal cart snapshot persisted between
// requests so a crashed or restarted terminal can resume mid-sale.
type SessionCart struct {
	TerminalID    string     `json:"terminal_id"`
	CustomerID    string     `json:"customer_id,omitempty"`
	Items         []SaleItem `json:"items"`
	DiscountCents int64      `json:"discount_cents"`
	Note          string     `json:"note,omitempty"`
	SavedAt       time.Time  `json:"saved_at"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the logged-in staff member on a request context.
type Actor struct {
	Name string
}
