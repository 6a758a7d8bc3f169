package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order item does not exist.
var ErrNotFound = errors.New("order not found")

// OrderItem is a persisted order line. ID is assigned by the repository on
// creation and never changes afterwards.
type OrderItem struct {
	ID          int64
	ProductName string
	// Category is nil for uncategorized items.
	Category  *string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CategoryName returns the category or an empty string when uncategorized.
func (i OrderItem) CategoryName() string {
	if i.Category == nil {
		return ""
	}
	return *i.Category
}

// Repository defines persistence operations for order items. List operations
// return items ordered by ID.
type Repository interface {
	// CreateBatch stores all items atomically and returns them, in input
	// order, with their assigned IDs.
	CreateBatch(ctx context.Context, items []OrderItem) ([]OrderItem, error)
	GetByID(ctx context.Context, id int64) (*OrderItem, error)
	// ListByCategory matches the category exactly (case-sensitive).
	// Uncategorized items never match.
	ListByCategory(ctx context.Context, category string) ([]OrderItem, error)
	ListByMinQuantity(ctx context.Context, minQuantity int) ([]OrderItem, error)
	List(ctx context.Context) ([]OrderItem, error)
}
