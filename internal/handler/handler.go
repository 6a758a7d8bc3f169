// Package handler exposes the invoice service over HTTP.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/order-invoice/internal/domain/invoice"
)

// maxBodyBytes caps invoice request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the order and invoice routes, delegating business logic to
// the invoice service.
type Handler struct {
	invoices *invoice.Service
}

// NewHandler constructs a Handler.
func NewHandler(invoices *invoice.Service) *Handler {
	return &Handler{invoices: invoices}
}

// Routes returns a router with all order and invoice endpoints mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/bulk", h.ListBulkOrders)
		r.Get("/category/{category}", h.ListOrdersByCategory)

		r.Post("/invoice", h.GenerateInvoice)
		r.Get("/invoice", h.AllInvoices)
		r.Get("/invoice/{orderId}", h.InvoiceByOrderID)
	})
	return r
}
