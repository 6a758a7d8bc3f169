package invoice

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/order-invoice/internal/domain/order"
)

// Sentinel errors for batch validation.
var (
	ErrEmptyBatch       = errors.New("items required")
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
	ErrInvalidUnitPrice = errors.New("unit price must be greater than 0")
)

// ItemError reports which item of a batch failed validation.
type ItemError struct {
	Index       int
	ProductName string
	Err         error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %s", e.Index, e.ProductName, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// OrderNotFoundError indicates that no order item exists with the given ID.
type OrderNotFoundError struct {
	ID int64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %d not found", e.ID)
}

func (e *OrderNotFoundError) Unwrap() error {
	return order.ErrNotFound
}

// Validate rejects a batch that is empty or contains an item with a
// non-positive quantity or unit price. Items are checked in order and the
// first violation is returned.
func Validate(items []order.OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return &ItemError{Index: i, ProductName: item.ProductName, Err: ErrInvalidQuantity}
		}
		if !item.UnitPrice.IsPositive() {
			return &ItemError{Index: i, ProductName: item.ProductName, Err: ErrInvalidUnitPrice}
		}
	}
	return nil
}
