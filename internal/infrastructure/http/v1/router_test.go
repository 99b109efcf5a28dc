package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "novaerp/internal/core/context"
	"novaerp/internal/core/types"
	"novaerp/internal/domain/auth"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/domain/registers/stock"
	v1 "novaerp/internal/infrastructure/http/v1"
	"novaerp/internal/infrastructure/storage/memory"
	"novaerp/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	store    *memory.Store
	stock    *stock.Service
	router   *gin.Engine
	handler  http.Handler
	jwt      *auth.JWTService
	customer *customer.Customer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Warehouses().Create(ctx, warehouse.NewWarehouse("Main")))
	cust := customer.NewCustomer("Alice")
	require.NoError(t, store.Customers().Create(ctx, cust))

	stockSvc := stock.NewService(stock.Config{
		TxManager:  store,
		Repo:       store.Stock(),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
		Publisher:  store.Outbox(),
	})
	saleSvc := sale.NewService(sale.Config{
		TxManager:  store,
		Sales:      store.Sales(),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
		Customers:  store.Customers(),
		Stock:      stockSvc,
		Publisher:  store.Outbox(),
	})

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	router := v1.NewRouter(v1.RouterConfig{
		Logger:        logger.Nop(),
		JWTValidator:  jwtSvc,
		Store:         store,
		StorageDriver: "memory",
		Version:       "test",
		Idempotency:   store.Idempotency(),
		Products:      product.NewService(store.Products(), store),
		Warehouses:    warehouse.NewService(store.Warehouses(), store),
		Customers:     customer.NewService(store.Customers(), store),
		Stock:         stockSvc,
		Sales:         saleSvc,
	})

	return &apiFixture{
		store:    store,
		stock:    stockSvc,
		router:   router,
		handler:  v1.Handler(router),
		jwt:      jwtSvc,
		customer: cust,
	}
}

func (f *apiFixture) token(t *testing.T, user appctx.UserContext) string {
	t.Helper()
	token, _, err := f.jwt.IssueToken(user)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) cashierToken(t *testing.T) string {
	return f.token(t, appctx.UserContext{UserID: "cashier-1", Roles: []string{"cashier"}})
}

func (f *apiFixture) product(t *testing.T, name string, qty int) *product.Product {
	t.Helper()
	p := product.NewProduct(name, "SKU-"+name, types.MustMoney("100"), types.MustMoney("60"))
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	if qty > 0 {
		_, err := f.stock.Supply(context.Background(), stock.SupplyCommand{
			ProductID: p.ID,
			Quantity:  qty,
			CostPrice: types.MustMoney("60"),
			UserID:    "seed",
		})
		require.NoError(t, err)
	}
	return p
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) saleBody(p *product.Product, qty int) map[string]any {
	return map[string]any{
		"customerId": f.customer.ID.String(),
		"items": []map[string]any{
			{"productId": p.ID.String(), "quantity": qty, "unitPrice": "100"},
		},
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateSale_ReturnsReceipt(t *testing.T) {
	f := newAPIFixture(t)
	p := f.product(t, "Laptop", 5)

	w := f.do(t, http.MethodPost, "/api/v1/sales", f.cashierToken(t), f.saleBody(p, 2), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var receipt sale.Receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Regexp(t, `^SALE-\d{8}-[0-9A-F]{8}$`, receipt.SaleNumber)
	assert.Equal(t, "Alice", receipt.CustomerName)
	assert.True(t, types.MustMoney("200").Equal(receipt.FinalAmount), "final %s", receipt.FinalAmount)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "Laptop", receipt.Items[0].ProductName)

	got, err := f.store.Products().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)

	w = f.do(t, http.MethodGet, "/api/v1/sales/"+receipt.SaleID.String()+"/receipt", f.cashierToken(t), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	f := newAPIFixture(t)
	p := f.product(t, "Mouse", 1)

	w := f.do(t, http.MethodPost, "/api/v1/sales", f.cashierToken(t), f.saleBody(p, 3), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	assert.NotEmpty(t, body["message"])
}

func TestCreateSale_InvalidProductID(t *testing.T) {
	f := newAPIFixture(t)

	body := map[string]any{
		"customerId": f.customer.ID.String(),
		"items":      []map[string]any{{"productId": "nope", "quantity": 1, "unitPrice": "1"}},
	}
	w := f.do(t, http.MethodPost, "/api/v1/sales", f.cashierToken(t), body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", resp["code"])
	details, ok := resp["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "items[0].productId", details["field"])
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	tests := map[string]string{
		"missing": "",
		"garbage": "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/v1/products", token, nil, nil)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, w)["code"])
		})
	}
}

func TestCreateSale_IdempotentReplay(t *testing.T) {
	f := newAPIFixture(t)
	p := f.product(t, "Keyboard", 5)
	token := f.cashierToken(t)
	headers := map[string]string{"Idempotency-Key": "sale-42"}

	first := f.do(t, http.MethodPost, "/api/v1/sales", token, f.saleBody(p, 2), headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := f.do(t, http.MethodPost, "/api/v1/sales", token, f.saleBody(p, 2), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	got, err := f.store.Products().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)

	mismatch := f.do(t, http.MethodPost, "/api/v1/sales", token, f.saleBody(p, 1), headers)
	assert.Equal(t, http.StatusConflict, mismatch.Code)
}

func TestCreateSale_IdempotentFailureReplayed(t *testing.T) {
	f := newAPIFixture(t)
	p := f.product(t, "Monitor", 1)
	token := f.cashierToken(t)
	headers := map[string]string{"Idempotency-Key": "sale-short"}

	first := f.do(t, http.MethodPost, "/api/v1/sales", token, f.saleBody(p, 2), headers)
	require.Equal(t, http.StatusBadRequest, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/sales", token, f.saleBody(p, 2), headers)
	require.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "INSUFFICIENT_STOCK", decodeError(t, second)["code"])
}

func TestHandler_CompressesLargeResponses(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 30; i++ {
		f.product(t, fmt.Sprintf("Item%02d", i), 0)
	}

	w := f.do(t, http.MethodGet, "/api/v1/products?limit=50", f.cashierToken(t), nil,
		map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var list struct {
		Items      []map[string]any `json:"items"`
		TotalCount int64            `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.EqualValues(t, 30, list.TotalCount)
	assert.Len(t, list.Items, 30)
}

func TestRouter_PanicRendersInternalError(t *testing.T) {
	f := newAPIFixture(t)
	f.router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := f.do(t, http.MethodGet, "/boom", "", nil, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, w.Body.String(), "boom")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestReconcile_RequiresInventoryRole(t *testing.T) {
	f := newAPIFixture(t)
	p := f.product(t, "Desk", 4)
	path := "/api/v1/stock/reconcile/" + p.ID.String()

	w := f.do(t, http.MethodGet, path, f.cashierToken(t), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, path, f.token(t, appctx.UserContext{UserID: "keeper", Roles: []string{v1.RoleInventory}}), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec stock.Reconciliation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.InSync)
	assert.Equal(t, 4, rec.LedgerQuantity)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health/live", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/health/ready", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"memory":"healthy"`)
}

func TestCreateWarehouse_BindingErrors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/warehouses", f.cashierToken(t), map[string]any{"address": "Baku"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"Name": "required"}, details["fields"])
}

func TestCORS_Preflight(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodOptions, "/api/v1/sales", "", nil, map[string]string{
		"Origin":                         "https://pos.example.com",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Authorization, Idempotency-Key",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListEndpoints_RejectNegativePaging(t *testing.T) {
	f := newAPIFixture(t)
	f.product(t, "Lamp", 2)

	for _, path := range []string{
		"/api/v1/products?offset=-1",
		"/api/v1/warehouses?limit=-5",
		"/api/v1/sales?offset=-1",
		"/api/v1/stock/movements?offset=-1",
		"/api/v1/stock/movements?limit=abc",
	} {
		t.Run(path, func(t *testing.T) {
			w := f.do(t, http.MethodGet, path, f.cashierToken(t), nil, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w)["code"])
		})
	}

	w := f.do(t, http.MethodGet, "/api/v1/stock/movements?offset=0&limit=10", f.cashierToken(t), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateProduct(t *testing.T) {
	f := newAPIFixture(t)
	p := f.product(t, "Chair", 3)
	current, err := f.store.Products().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	path := "/api/v1/products/" + p.ID.String()

	body := map[string]any{
		"version":       current.Version,
		"name":          "Office Chair",
		"sku":           p.SKU,
		"price":         "120",
		"cost":          "60",
		"stockQuantity": 3,
		"minStockLevel": 1,
	}
	w := f.do(t, http.MethodPut, path, f.cashierToken(t), body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Office Chair", resp["name"])
	assert.EqualValues(t, 3, resp["stockQuantity"])
	assert.EqualValues(t, current.Version+1, resp["version"])

	t.Run("stock change rejected", func(t *testing.T) {
		body["version"] = current.Version + 1
		body["stockQuantity"] = 50
		w := f.do(t, http.MethodPut, path, f.cashierToken(t), body, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w)["code"])
	})

	t.Run("stale version", func(t *testing.T) {
		body["version"] = current.Version
		delete(body, "stockQuantity")
		w := f.do(t, http.MethodPut, path, f.cashierToken(t), body, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONCURRENT_MODIFICATION", decodeError(t, w)["code"])
	})
}

func TestDeleteProduct(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.token(t, appctx.UserContext{UserID: "boss", IsAdmin: true})

	unused := f.product(t, "Spare", 0)
	w := f.do(t, http.MethodDelete, "/api/v1/products/"+unused.ID.String(), f.cashierToken(t), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/products/"+unused.ID.String(), admin, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/products/"+unused.ID.String(), admin, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	sold := f.product(t, "Lamp", 2)
	w = f.do(t, http.MethodPost, "/api/v1/sales", f.cashierToken(t), f.saleBody(sold, 1), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodDelete, "/api/v1/products/"+sold.ID.String(), admin, nil, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ENTITY_IN_USE", decodeError(t, w)["code"])
}
