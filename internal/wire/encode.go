package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/domain/order"
)

// EncodeInvoice writes {"invoice":[...],"grandTotal":n}.
func EncodeInvoice(e *jx.Encoder, inv invoice.Invoice) {
	e.ObjStart()
	e.FieldStart("invoice")
	e.ArrStart()
	for _, line := range inv.Items {
		encodeLineItem(e, line)
	}
	e.ArrEnd()
	e.FieldStart("grandTotal")
	encodeMoney(e, inv.GrandTotal)
	e.ObjEnd()
}

func encodeLineItem(e *jx.Encoder, line invoice.LineItem) {
	e.ObjStart()
	e.FieldStart("productName")
	e.Str(line.ProductName)
	e.FieldStart("category")
	encodeCategory(e, line.Category)
	e.FieldStart("quantity")
	e.Int(line.Quantity)
	e.FieldStart("unitPrice")
	encodeMoney(e, line.UnitPrice)
	e.FieldStart("lineTotal")
	encodeMoney(e, line.LineTotal)
	e.ObjEnd()
}

// EncodeOrders writes a JSON array of stored order items. A nil slice is
// written as an empty array.
func EncodeOrders(e *jx.Encoder, items []order.OrderItem) {
	e.ArrStart()
	for _, item := range items {
		EncodeOrder(e, item)
	}
	e.ArrEnd()
}

// EncodeOrder writes a single stored order item.
func EncodeOrder(e *jx.Encoder, item order.OrderItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(item.ID)
	e.FieldStart("productName")
	e.Str(item.ProductName)
	e.FieldStart("category")
	encodeCategory(e, item.Category)
	e.FieldStart("quantity")
	e.Int(item.Quantity)
	e.FieldStart("unitPrice")
	encodeMoney(e, item.UnitPrice)
	e.ObjEnd()
}

// EncodeError writes {"code":status,"message":msg}.
func EncodeError(e *jx.Encoder, status int, msg string) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
}

func encodeCategory(e *jx.Encoder, c *string) {
	if c == nil {
		e.Null()
		return
	}
	e.Str(*c)
}
