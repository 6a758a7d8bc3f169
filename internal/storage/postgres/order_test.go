package postgres

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-invoice/internal/domain/order"
)

var orderItemColumns = []string{"id", "product_name", "category", "quantity", "unit_price"}

func newTestRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewOrderRepository(mock), mock
}

func category(s string) *string { return &s }

func sampleItems() []order.OrderItem {
	return []order.OrderItem{
		{ProductName: "Laptop", Category: category("Electronics"), Quantity: 1, UnitPrice: decimal.RequireFromString("50000")},
		{ProductName: "Widget", Quantity: 5, UnitPrice: decimal.RequireFromString("19.99")},
	}
}

func TestOrderRepository_CreateBatch(t *testing.T) {
	repo, mock := newTestRepo(t)
	items := sampleItems()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs("Laptop", pgxmock.AnyArg(), 1, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs("Widget", pgxmock.AnyArg(), 5, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectCommit()

	saved, err := repo.CreateBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, int64(7), saved[0].ID)
	assert.Equal(t, "Laptop", saved[0].ProductName)
	assert.Equal(t, int64(8), saved[1].ID)
	assert.Nil(t, saved[1].Category)
	assert.True(t, decimal.RequireFromString("19.99").Equal(saved[1].UnitPrice))

	// Input slice is left untouched.
	assert.Zero(t, items[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateBatch_BeginError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := repo.CreateBatch(context.Background(), sampleItems())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateBatch_InsertErrorRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs("Laptop", pgxmock.AnyArg(), 1, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs("Widget", pgxmock.AnyArg(), 5, pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	saved, err := repo.CreateBatch(context.Background(), sampleItems())
	require.Error(t, err)
	assert.Nil(t, saved)
	assert.Contains(t, err.Error(), "inserting order item 1")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateBatch_CommitError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	_, err := repo.CreateBatch(context.Background(), sampleItems())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
}

func TestOrderRepository_GetByID(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := pgxmock.NewRows(orderItemColumns).
		AddRow(int64(3), "Shirt", category("Clothing"), 6, decimal.RequireFromString("1000.00"))
	mock.ExpectQuery("SELECT (.+) FROM order_items WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	item, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), item.ID)
	assert.Equal(t, "Shirt", item.ProductName)
	require.NotNil(t, item.Category)
	assert.Equal(t, "Clothing", *item.Category)
	assert.Equal(t, 6, item.Quantity)
	assert.True(t, decimal.NewFromInt(1000).Equal(item.UnitPrice))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM order_items WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows(orderItemColumns))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, order.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_QueryError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM order_items WHERE id").
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, order.ErrNotFound)
	assert.Contains(t, err.Error(), "getting order item 1")
}

func TestOrderRepository_List(t *testing.T) {
	repo, mock := newTestRepo(t)

	var uncategorized *string
	rows := pgxmock.NewRows(orderItemColumns).
		AddRow(int64(1), "Laptop", category("Electronics"), 1, decimal.RequireFromString("50000")).
		AddRow(int64(2), "Widget", uncategorized, 2, decimal.RequireFromString("10.50"))
	mock.ExpectQuery("SELECT (.+) FROM order_items ORDER BY id").WillReturnRows(rows)

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Laptop", items[0].ProductName)
	assert.Nil(t, items[1].Category)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByCategory(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := pgxmock.NewRows(orderItemColumns).
		AddRow(int64(4), "Rice", category("Grocery"), 5, decimal.RequireFromString("1000"))
	mock.ExpectQuery("SELECT (.+) FROM order_items WHERE category").
		WithArgs("Grocery").
		WillReturnRows(rows)

	items, err := repo.ListByCategory(context.Background(), "Grocery")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Grocery", items[0].CategoryName())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByMinQuantity(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := pgxmock.NewRows(orderItemColumns).
		AddRow(int64(2), "Mouse", category("Electronics"), 5, decimal.RequireFromString("1000")).
		AddRow(int64(5), "Shirt", category("Clothing"), 12, decimal.RequireFromString("15"))
	mock.ExpectQuery("SELECT (.+) FROM order_items WHERE quantity").
		WithArgs(5).
		WillReturnRows(rows)

	items, err := repo.ListByMinQuantity(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(5), items[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM order_items WHERE quantity").
		WithArgs(5).
		WillReturnError(errors.New("db down"))

	_, err := repo.ListByMinQuantity(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing order items with quantity >= 5")
}
