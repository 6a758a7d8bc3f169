// Package invoice prices order items and assembles invoices.
//
// Pricing applies a bulk discount first and a category tax rate second, both
// multiplicatively, using exact decimal arithmetic. Rounding for display is
// left to the wire layer.
package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/order-invoice/internal/domain/order"
)

// BulkThreshold is the minimum quantity that qualifies an item for the bulk
// discount.
const BulkThreshold = 5

// bulkMultiplier is 1 - 10% bulk discount.
var bulkMultiplier = decimal.RequireFromString("0.90")

// LineItem is a priced copy of an order item.
type LineItem struct {
	ProductName string
	Category    *string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Invoice is an ordered list of priced line items. GrandTotal is always the
// exact sum of the line totals.
type Invoice struct {
	Items      []LineItem
	GrandTotal decimal.Decimal
}

// Price computes the line total for a single item: quantity times unit price,
// less the bulk discount when eligible, plus category tax.
func Price(item order.OrderItem) LineItem {
	total := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	if item.Quantity >= BulkThreshold {
		total = total.Mul(bulkMultiplier)
	}
	total = total.Mul(decimal.NewFromInt(1).Add(TaxRate(item.Category)))

	return LineItem{
		ProductName: item.ProductName,
		Category:    item.Category,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   total,
	}
}

// Aggregate prices every item in order and sums the line totals. An empty
// input yields an empty invoice with a zero grand total.
func Aggregate(items []order.OrderItem) Invoice {
	inv := Invoice{
		Items:      make([]LineItem, 0, len(items)),
		GrandTotal: decimal.Zero,
	}
	for _, item := range items {
		line := Price(item)
		inv.Items = append(inv.Items, line)
		inv.GrandTotal = inv.GrandTotal.Add(line.LineTotal)
	}
	return inv
}
