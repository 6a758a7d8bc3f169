// Package memory provides an in-process order item store.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/order-invoice/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory. Items are kept in
// insertion order, which is also ID order.
type OrderRepository struct {
	mu     sync.RWMutex
	items  []order.OrderItem
	byID   map[int64]int
	nextID int64
}

// NewOrderRepository returns an empty store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		byID:   make(map[int64]int),
		nextID: 1,
	}
}

func (r *OrderRepository) CreateBatch(ctx context.Context, items []order.OrderItem) ([]order.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saved := make([]order.OrderItem, len(items))
	for i, item := range items {
		item.ID = r.nextID
		item.Category = cloneCategory(item.Category)
		r.nextID++

		r.byID[item.ID] = len(r.items)
		r.items = append(r.items, item)
		saved[i] = item
	}
	return saved, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	item := r.items[idx]
	item.Category = cloneCategory(item.Category)
	return &item, nil
}

func (r *OrderRepository) ListByCategory(ctx context.Context, category string) ([]order.OrderItem, error) {
	return r.filter(ctx, func(item order.OrderItem) bool {
		return item.Category != nil && *item.Category == category
	})
}

func (r *OrderRepository) ListByMinQuantity(ctx context.Context, minQuantity int) ([]order.OrderItem, error) {
	return r.filter(ctx, func(item order.OrderItem) bool {
		return item.Quantity >= minQuantity
	})
}

func (r *OrderRepository) List(ctx context.Context) ([]order.OrderItem, error) {
	return r.filter(ctx, func(order.OrderItem) bool { return true })
}

// Len reports the number of stored items.
func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *OrderRepository) filter(ctx context.Context, keep func(order.OrderItem) bool) ([]order.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]order.OrderItem, 0)
	for _, item := range r.items {
		if !keep(item) {
			continue
		}
		item.Category = cloneCategory(item.Category)
		out = append(out, item)
	}
	return out, nil
}

func cloneCategory(c *string) *string {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
