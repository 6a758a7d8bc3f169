package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/domain/order"
	"github.com/xenking/order-invoice/internal/wire"
)

// GenerateInvoice handles POST /orders/invoice.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	items, err := wire.DecodeOrderRequest(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	inv, err := h.invoices.Generate(r.Context(), items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeInvoice(w, inv)
}

// AllInvoices handles GET /orders/invoice.
func (h *Handler) AllInvoices(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.AllInvoices(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeInvoice(w, inv)
}

// InvoiceByOrderID handles GET /orders/invoice/{orderId}.
func (h *Handler) InvoiceByOrderID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "orderId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id "+strconv.Quote(raw))
		return
	}

	inv, err := h.invoices.InvoiceByOrderID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeInvoice(w, inv)
}

// ListOrders handles GET /orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	items, err := h.invoices.Orders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrders(w, items)
}

// ListOrdersByCategory handles GET /orders/category/{category}.
func (h *Handler) ListOrdersByCategory(w http.ResponseWriter, r *http.Request) {
	items, err := h.invoices.OrdersByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrders(w, items)
}

// ListBulkOrders handles GET /orders/bulk.
func (h *Handler) ListBulkOrders(w http.ResponseWriter, r *http.Request) {
	items, err := h.invoices.BulkOrders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrders(w, items)
}

func writeInvoice(w http.ResponseWriter, inv *invoice.Invoice) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	wire.EncodeInvoice(e, *inv)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func writeOrders(w http.ResponseWriter, items []order.OrderItem) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	wire.EncodeOrders(e, items)
	writeJSON(w, http.StatusOK, e.Bytes())
}
