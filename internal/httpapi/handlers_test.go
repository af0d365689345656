package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/service"
	"butikpos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, 0)
	auth := NewAuthManager("test-secret-key", time.Hour, "butik-rahasia")

	return New(svc, auth, "*")
}

func loginAsStaff(t *testing.T, api *API) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Name: "dina", Password: "butik-rahasia"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("login failed, status %d (body: %s)", res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func authedRequest(t *testing.T, api *API, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	token := loginAsStaff(t, api)
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload failed: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestProductsRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
}

func TestListProductsWithToken(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodGet, "/api/v1/products", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	var body struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Products) != 3 {
		t.Fatalf("expected 3 seeded products, got %d", len(body.Products))
	}
}

func TestGetUnknownProductReturns404(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodGet, "/api/v1/products/prd-tidak-ada", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestCreateSaleReturns201(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodPost, "/api/v1/sales", domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "M", Qty: 1},
		},
		PaymentMethod: "cash",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	var body struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Sale.TotalCents != 189000 {
		t.Fatalf("expected total 189000, got %d", body.Sale.TotalCents)
	}
	if body.Sale.CashierName != "dina" {
		t.Fatalf("expected cashier from token, got %s", body.Sale.CashierName)
	}
}

func TestOversoldAdjustmentReturns409(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodPost, "/api/v1/stock/adjustments", map[string]any{
		"adjustments": []domain.VariantAdjustment{
			{ProductID: "prd-kemeja-01", Color: "putih", Size: "S", Delta: -100},
		},
	})
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for oversold adjustment, got %d", res.Code)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsStaff(t, api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(`{"amount_cents":1000,"note":"ok","bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.Code)
	}
}

func TestShiftCloseThenListShifts(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodPost, "/api/v1/shifts/close", domain.ShiftCloseRequest{ActualCents: 0})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	list := authedRequest(t, api, http.MethodGet, "/api/v1/shifts", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	var body struct {
		Shifts []domain.Shift `json:"shifts"`
	}
	if err := json.NewDecoder(list.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Shifts) != 1 {
		t.Fatalf("expected 1 shift, got %d", len(body.Shifts))
	}
	if body.Shifts[0].ClosedBy != "dina" {
		t.Fatalf("expected shift closed by dina, got %s", body.Shifts[0].ClosedBy)
	}
}

func TestWorkingSetSyncEndpoint(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodPost, "/api/v1/sync/working-set", domain.WorkingSet{
		Customers: []domain.Customer{
			{ID: "cus-ani-01", Name: "Ani", Phone: "0813-0000-0002"},
			{ID: "cus-baru-01", Name: "Budi"},
			{Name: "tanpa id"},
		},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	var body struct {
		Report domain.SyncReport `json:"report"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Report.Customers.Upserted != 2 || body.Report.Customers.Skipped != 1 {
		t.Fatalf("unexpected customer sync result: %+v", body.Report.Customers)
	}
}

func TestMethodNotAllowedOnInvoices(t *testing.T) {
	api := newTestAPI(t)

	res := authedRequest(t, api, http.MethodGet, "/api/v1/invoices", nil)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
