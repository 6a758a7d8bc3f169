package invoice

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/order-invoice/internal/domain/order"
)

const meterName = "github.com/xenking/order-invoice/internal/domain/invoice"

// Service generates invoices for new order batches and prices stored orders.
type Service struct {
	orders order.Repository

	generated metric.Int64Counter
	lines     metric.Int64Histogram
}

// NewService creates a Service backed by the given order repository.
func NewService(orders order.Repository, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter(meterName)

	generated, err := meter.Int64Counter("invoice.generated",
		metric.WithDescription("Number of invoices produced"),
		metric.WithUnit("{invoice}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create generated counter")
	}
	lines, err := meter.Int64Histogram("invoice.line_items",
		metric.WithDescription("Number of line items per invoice"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create line items histogram")
	}

	return &Service{
		orders:    orders,
		generated: generated,
		lines:     lines,
	}, nil
}

// Generate validates the batch, persists it, and prices the stored items.
// Nothing is persisted when validation fails.
func (s *Service) Generate(ctx context.Context, items []order.OrderItem) (*Invoice, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}

	saved, err := s.orders.CreateBatch(ctx, items)
	if err != nil {
		return nil, errors.Wrap(err, "create order items")
	}

	inv := Aggregate(saved)
	s.record(ctx, "generate", inv)

	zctx.From(ctx).Debug("Invoice generated",
		zap.Int("items", len(inv.Items)),
		zap.Stringer("grand_total", inv.GrandTotal),
	)
	return &inv, nil
}

// InvoiceByOrderID prices a single stored order item.
func (s *Service) InvoiceByOrderID(ctx context.Context, id int64) (*Invoice, error) {
	item, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, &OrderNotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	line := Price(*item)
	inv := Invoice{
		Items:      []LineItem{line},
		GrandTotal: line.LineTotal,
	}
	s.record(ctx, "by_id", inv)
	return &inv, nil
}

// AllInvoices prices every stored order item as one invoice.
func (s *Service) AllInvoices(ctx context.Context) (*Invoice, error) {
	items, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	inv := Aggregate(items)
	s.record(ctx, "all", inv)
	return &inv, nil
}

// Orders returns every stored order item.
func (s *Service) Orders(ctx context.Context) ([]order.OrderItem, error) {
	items, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return items, nil
}

// OrdersByCategory returns stored order items of the given category.
func (s *Service) OrdersByCategory(ctx context.Context, category string) ([]order.OrderItem, error) {
	items, err := s.orders.ListByCategory(ctx, category)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders by category %q", category)
	}
	return items, nil
}

// BulkOrders returns stored order items eligible for the bulk discount.
func (s *Service) BulkOrders(ctx context.Context) ([]order.OrderItem, error) {
	items, err := s.orders.ListByMinQuantity(ctx, BulkThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "list bulk orders")
	}
	return items, nil
}

func (s *Service) record(ctx context.Context, operation string, inv Invoice) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	s.generated.Add(ctx, 1, attrs)
	s.lines.Record(ctx, int64(len(inv.Items)), attrs)
}
