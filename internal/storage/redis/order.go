// Package redis stores order items in Redis.
//
// Layout:
//
//	order_items:seq                  INCRBY sequence for item IDs
//	order_item:<id>                  hash with the item fields
//	order_items                      sorted set of IDs scored by ID
//	order_items:category:<category>  sorted set of IDs scored by ID
//	order_items:quantity             sorted set of IDs scored by quantity
//
// Uncategorized items are not added to any category index.
package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-invoice/internal/domain/order"
)

const (
	seqKey      = "order_items:seq"
	allKey      = "order_items"
	quantityKey = "order_items:quantity"

	fieldProductName = "product_name"
	fieldCategory    = "category"
	fieldQuantity    = "quantity"
	fieldUnitPrice   = "unit_price"
)

func itemKey(id int64) string { return "order_item:" + strconv.FormatInt(id, 10) }

func categoryKey(category string) string { return "order_items:category:" + category }

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by Redis.
type OrderRepository struct {
	client redis.UniversalClient
}

// NewOrderRepository returns an OrderRepository that uses the given client.
func NewOrderRepository(client redis.UniversalClient) *OrderRepository {
	return &OrderRepository{client: client}
}

// CreateBatch reserves a contiguous ID range and writes every item and index
// entry in one MULTI/EXEC transaction. IDs reserved by a failed transaction
// are not reused.
func (r *OrderRepository) CreateBatch(ctx context.Context, items []order.OrderItem) ([]order.OrderItem, error) {
	if len(items) == 0 {
		return []order.OrderItem{}, nil
	}

	last, err := r.client.IncrBy(ctx, seqKey, int64(len(items))).Result()
	if err != nil {
		return nil, fmt.Errorf("reserving order item ids: %w", err)
	}
	first := last - int64(len(items)) + 1

	saved := make([]order.OrderItem, len(items))
	for i, item := range items {
		item.ID = first + int64(i)
		saved[i] = item
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range saved {
			fields := map[string]any{
				fieldProductName: item.ProductName,
				fieldQuantity:    item.Quantity,
				fieldUnitPrice:   item.UnitPrice.String(),
			}
			if item.Category != nil {
				fields[fieldCategory] = *item.Category
			}
			pipe.HSet(ctx, itemKey(item.ID), fields)

			member := redis.Z{Score: float64(item.ID), Member: item.ID}
			pipe.ZAdd(ctx, allKey, member)
			if item.Category != nil {
				pipe.ZAdd(ctx, categoryKey(*item.Category), member)
			}
			pipe.ZAdd(ctx, quantityKey, redis.Z{Score: float64(item.Quantity), Member: item.ID})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storing order items: %w", err)
	}

	return saved, nil
}

// GetByID returns a single order item or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.OrderItem, error) {
	fields, err := r.client.HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting order item %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, order.ErrNotFound
	}

	item, err := decodeItem(id, fields)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByCategory returns items whose category equals the argument exactly.
func (r *OrderRepository) ListByCategory(ctx context.Context, category string) ([]order.OrderItem, error) {
	ids, err := r.client.ZRange(ctx, categoryKey(category), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing order items by category %q: %w", category, err)
	}
	return r.load(ctx, ids)
}

// ListByMinQuantity returns items with quantity of at least minQuantity,
// ordered by ID.
func (r *OrderRepository) ListByMinQuantity(ctx context.Context, minQuantity int) ([]order.OrderItem, error) {
	ids, err := r.client.ZRangeByScore(ctx, quantityKey, &redis.ZRangeBy{
		Min: strconv.Itoa(minQuantity),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing order items with quantity >= %d: %w", minQuantity, err)
	}

	numeric := make([]int64, len(ids))
	for i, id := range ids {
		if numeric[i], err = strconv.ParseInt(id, 10, 64); err != nil {
			return nil, fmt.Errorf("parsing order item id %q: %w", id, err)
		}
	}
	slices.Sort(numeric)
	for i, id := range numeric {
		ids[i] = strconv.FormatInt(id, 10)
	}

	return r.load(ctx, ids)
}

// List returns all order items ordered by ID.
func (r *OrderRepository) List(ctx context.Context) ([]order.OrderItem, error) {
	ids, err := r.client.ZRange(ctx, allKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return r.load(ctx, ids)
}

// load fetches the hashes for ids in one pipeline, preserving order.
func (r *OrderRepository) load(ctx context.Context, ids []string) ([]order.OrderItem, error) {
	items := make([]order.OrderItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	numeric := make([]int64, len(ids))
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing order item id %q: %w", id, err)
			}
			numeric[i] = n
			cmds[i] = pipe.HGetAll(ctx, itemKey(n))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Index entry without a hash.
			continue
		}
		item, err := decodeItem(numeric[i], fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(id int64, fields map[string]string) (order.OrderItem, error) {
	item := order.OrderItem{
		ID:          id,
		ProductName: fields[fieldProductName],
	}
	if c, ok := fields[fieldCategory]; ok {
		item.Category = &c
	}

	qty, err := strconv.Atoi(fields[fieldQuantity])
	if err != nil {
		return order.OrderItem{}, fmt.Errorf("decoding quantity of order item %d: %w", id, err)
	}
	item.Quantity = qty

	price, err := decimal.NewFromString(fields[fieldUnitPrice])
	if err != nil {
		return order.OrderItem{}, fmt.Errorf("decoding unit price of order item %d: %w", id, err)
	}
	item.UnitPrice = price

	return item, nil
}
