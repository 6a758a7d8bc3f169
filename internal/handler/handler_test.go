package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/domain/order"
	"github.com/xenking/order-invoice/internal/storage/memory"
)

// failingRepo fails every call with err.
type failingRepo struct {
	err error
}

func (f failingRepo) CreateBatch(context.Context, []order.OrderItem) ([]order.OrderItem, error) {
	return nil, f.err
}

func (f failingRepo) GetByID(context.Context, int64) (*order.OrderItem, error) { return nil, f.err }

func (f failingRepo) ListByCategory(context.Context, string) ([]order.OrderItem, error) {
	return nil, f.err
}

func (f failingRepo) ListByMinQuantity(context.Context, int) ([]order.OrderItem, error) {
	return nil, f.err
}

func (f failingRepo) List(context.Context) ([]order.OrderItem, error) { return nil, f.err }

func newTestServer(t *testing.T, repo order.Repository) *httptest.Server {
	t.Helper()
	svc, err := invoice.NewService(repo, noop.NewMeterProvider())
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(svc).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	}
	return resp.StatusCode, string(data)
}

func TestGenerateInvoice(t *testing.T) {
	tests := []struct {
		name string
		item string
		want string
	}{
		{
			name: "electronics single",
			item: `{"productName":"Laptop","category":"Electronics","quantity":1,"unitPrice":50000}`,
			want: `{"invoice":[{"productName":"Laptop","category":"Electronics","quantity":1,"unitPrice":50000.00,"lineTotal":59000.00}],"grandTotal":59000.00}`,
		},
		{
			name: "electronics bulk",
			item: `{"productName":"Mouse","category":"Electronics","quantity":5,"unitPrice":1000}`,
			want: `{"invoice":[{"productName":"Mouse","category":"Electronics","quantity":5,"unitPrice":1000.00,"lineTotal":5310.00}],"grandTotal":5310.00}`,
		},
		{
			name: "clothing bulk",
			item: `{"productName":"Shirt","category":"Clothing","quantity":6,"unitPrice":1000}`,
			want: `{"invoice":[{"productName":"Shirt","category":"Clothing","quantity":6,"unitPrice":1000.00,"lineTotal":6048.00}],"grandTotal":6048.00}`,
		},
		{
			name: "grocery bulk",
			item: `{"productName":"Rice","category":"Grocery","quantity":5,"unitPrice":1000}`,
			want: `{"invoice":[{"productName":"Rice","category":"Grocery","quantity":5,"unitPrice":1000.00,"lineTotal":4725.00}],"grandTotal":4725.00}`,
		},
		{
			name: "uncategorized",
			item: `{"productName":"Widget","quantity":1,"unitPrice":1000}`,
			want: `{"invoice":[{"productName":"Widget","category":null,"quantity":1,"unitPrice":1000.00,"lineTotal":1000.00}],"grandTotal":1000.00}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, memory.NewOrderRepository())

			status, body := do(t, srv, http.MethodPost, "/orders/invoice", `{"items":[`+tt.item+`]}`)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestGenerateInvoice_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "empty batch",
			body:       `{"items":[]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"items required"}`,
		},
		{
			name:       "missing items",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"items required"}`,
		},
		{
			name:       "malformed json",
			body:       `{"items":[`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing product name",
			body:       `{"items":[{"quantity":1,"unitPrice":10}]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"items[0].productName is required"}`,
		},
		{
			name:       "price exponent too large",
			body:       `{"items":[{"productName":"x","quantity":1,"unitPrice":1e9000000}]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"items[0].unitPrice must have at most 15 integer and 4 fraction digits"}`,
		},
		{
			name:       "quantity too large",
			body:       `{"items":[{"productName":"x","quantity":3000000000,"unitPrice":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"items[0].quantity must be at most 2147483647"}`,
		},
		{
			name:       "zero quantity",
			body:       `{"items":[{"productName":"Laptop","quantity":0,"unitPrice":10}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"code":422,"message":"item 0 (Laptop): quantity must be greater than 0"}`,
		},
		{
			name:       "negative price",
			body:       `{"items":[{"productName":"A","quantity":1,"unitPrice":1},{"productName":"B","quantity":1,"unitPrice":-5}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"code":422,"message":"item 1 (B): unit price must be greater than 0"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewOrderRepository()
			srv := newTestServer(t, repo)

			status, body := do(t, srv, http.MethodPost, "/orders/invoice", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, body)
			}
			assert.Zero(t, repo.Len(), "nothing stored")
		})
	}
}

func TestGenerateInvoice_BodyTooLarge(t *testing.T) {
	svc, err := invoice.NewService(memory.NewOrderRepository(), noop.NewMeterProvider())
	require.NoError(t, err)

	body := `{"items":[],"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/invoice", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, `{"code":413,"message":"request body too large"}`, rec.Body.String())
}

func TestInvoiceReads(t *testing.T) {
	srv := newTestServer(t, memory.NewOrderRepository())

	status, body := do(t, srv, http.MethodGet, "/orders/invoice", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"invoice":[],"grandTotal":0.00}`, body)

	status, _ = do(t, srv, http.MethodPost, "/orders/invoice", `{"items":[
		{"productName":"Laptop","category":"Electronics","quantity":1,"unitPrice":50000},
		{"productName":"Rice","category":"Grocery","quantity":5,"unitPrice":1000},
		{"productName":"Widget","quantity":7,"unitPrice":2.5}
	]}`)
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, srv, http.MethodGet, "/orders/invoice/2", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"invoice":[{"productName":"Rice","category":"Grocery","quantity":5,"unitPrice":1000.00,"lineTotal":4725.00}],"grandTotal":4725.00}`, body)

	status, body = do(t, srv, http.MethodGet, "/orders/invoice", "")
	assert.Equal(t, http.StatusOK, status)
	// 59000 + 4725 + 7*2.5*0.9 = 63740.75
	assert.True(t, strings.HasSuffix(body, `"grandTotal":63740.75}`), body)

	status, body = do(t, srv, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t,
		`[{"id":1,"productName":"Laptop","category":"Electronics","quantity":1,"unitPrice":50000.00},`+
			`{"id":2,"productName":"Rice","category":"Grocery","quantity":5,"unitPrice":1000.00},`+
			`{"id":3,"productName":"Widget","category":null,"quantity":7,"unitPrice":2.50}]`,
		body)

	status, body = do(t, srv, http.MethodGet, "/orders/category/Grocery", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `[{"id":2,"productName":"Rice","category":"Grocery","quantity":5,"unitPrice":1000.00}]`, body)

	status, body = do(t, srv, http.MethodGet, "/orders/category/grocery", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `[]`, body)

	status, body = do(t, srv, http.MethodGet, "/orders/bulk", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"id":2`)
	assert.Contains(t, body, `"id":3`)
	assert.NotContains(t, body, `"id":1`)
}

func TestInvoiceByOrderID_Errors(t *testing.T) {
	srv := newTestServer(t, memory.NewOrderRepository())

	status, body := do(t, srv, http.MethodGet, "/orders/invoice/42", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, `{"code":404,"message":"order 42 not found"}`, body)

	status, body = do(t, srv, http.MethodGet, "/orders/invoice/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, `{"code":400,"message":"invalid order id \"abc\""}`, body)
}

func TestStorageFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	lg := zap.New(core)

	svc, err := invoice.NewService(failingRepo{err: errors.New("connection refused")}, noop.NewMeterProvider())
	require.NoError(t, err)
	routes := NewHandler(svc).Routes()

	// Inject the observed logger the way the middleware stack does.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), lg)))
	}))
	t.Cleanup(srv.Close)

	requests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/orders/invoice", `{"items":[{"productName":"A","quantity":1,"unitPrice":1}]}`},
		{http.MethodGet, "/orders/invoice", ""},
		{http.MethodGet, "/orders/invoice/1", ""},
		{http.MethodGet, "/orders", ""},
		{http.MethodGet, "/orders/category/Clothing", ""},
		{http.MethodGet, "/orders/bulk", ""},
	}
	for _, req := range requests {
		status, body := do(t, srv, req.method, req.path, req.body)
		assert.Equal(t, http.StatusInternalServerError, status, req.path)
		assert.Equal(t, `{"code":500,"message":"internal error"}`, body, req.path)
	}

	entries := logs.FilterMessage("Request failed").All()
	require.Len(t, entries, len(requests))
	assert.Contains(t, entries[0].ContextMap()["error"], "connection refused")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.NewOrderRepository())

	status, _ := do(t, srv, http.MethodDelete, "/orders", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"code":500,"message":"internal error"}`, rec.Body.String())
}
