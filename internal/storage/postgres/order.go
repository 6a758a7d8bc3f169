package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-invoice/internal/domain/order"
)

const (
	insertOrderItemSQL = `INSERT INTO order_items (product_name, category, quantity, unit_price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	selectOrderItemsSQL = `SELECT id, product_name, category, quantity, unit_price FROM order_items`

	getOrderItemSQL           = selectOrderItemsSQL + ` WHERE id = $1`
	listOrderItemsSQL         = selectOrderItemsSQL + ` ORDER BY id`
	listOrderItemsByCatSQL    = selectOrderItemsSQL + ` WHERE category = $1 ORDER BY id`
	listOrderItemsByMinQtySQL = selectOrderItemsSQL + ` WHERE quantity >= $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateBatch inserts all items in a single transaction. On any failure the
// transaction is rolled back and no item is stored.
func (r *OrderRepository) CreateBatch(ctx context.Context, items []order.OrderItem) ([]order.OrderItem, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved := make([]order.OrderItem, len(items))
	for i, item := range items {
		err := tx.QueryRow(ctx, insertOrderItemSQL,
			item.ProductName, item.Category, item.Quantity, item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("inserting order item %d: %w", i, err)
		}
		saved[i] = item
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return saved, nil
}

// GetByID returns a single order item. It returns order.ErrNotFound when no
// row matches.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.OrderItem, error) {
	rows, err := r.db.Query(ctx, getOrderItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order item %d: %w", id, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanOrderItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order item %d: %w", id, err)
	}
	return &item, nil
}

// ListByCategory returns items whose category equals the argument exactly.
func (r *OrderRepository) ListByCategory(ctx context.Context, category string) ([]order.OrderItem, error) {
	items, err := r.list(ctx, listOrderItemsByCatSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing order items by category %q: %w", category, err)
	}
	return items, nil
}

// ListByMinQuantity returns items with quantity of at least minQuantity.
func (r *OrderRepository) ListByMinQuantity(ctx context.Context, minQuantity int) ([]order.OrderItem, error) {
	items, err := r.list(ctx, listOrderItemsByMinQtySQL, minQuantity)
	if err != nil {
		return nil, fmt.Errorf("listing order items with quantity >= %d: %w", minQuantity, err)
	}
	return items, nil
}

// List returns all order items.
func (r *OrderRepository) List(ctx context.Context) ([]order.OrderItem, error) {
	items, err := r.list(ctx, listOrderItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return items, nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.OrderItem, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var (
		item  order.OrderItem
		price decimal.Decimal
	)
	err := row.Scan(&item.ID, &item.ProductName, &item.Category, &item.Quantity, &price)
	item.UnitPrice = price
	return item, err
}
