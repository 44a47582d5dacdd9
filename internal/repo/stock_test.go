package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

func TestAdjustStock_DecrementAndRestore(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	a := seedProduct(t, r, func(p *models.Product) { p.Stock = 5 })
	b := seedProduct(t, r, func(p *models.Product) { p.Stock = 3; p.SoldCount = 7 })

	items := []models.OrderItem{
		{ProductID: a.ID, Quantity: 5},
		{ProductID: b.ID, Quantity: 2},
	}

	require.NoError(t, r.AdjustStock(ctx, SaleDeltas(items)))
	assert.Equal(t, 0, reload(t, r, a).Stock)
	assert.Equal(t, 5, reload(t, r, a).SoldCount)
	assert.Equal(t, 1, reload(t, r, b).Stock)
	assert.Equal(t, 9, reload(t, r, b).SoldCount)

	require.NoError(t, r.AdjustStock(ctx, RestoreDeltas(items)))
	assert.Equal(t, 5, reload(t, r, a).Stock)
	assert.Equal(t, 0, reload(t, r, a).SoldCount)
	assert.Equal(t, 3, reload(t, r, b).Stock)
	assert.Equal(t, 7, reload(t, r, b).SoldCount)
}

func TestAdjustStock_PartialFailureIsCompensated(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	plenty := seedProduct(t, r, func(p *models.Product) { p.Stock = 10 })
	scarce := seedProduct(t, r, func(p *models.Product) { p.Stock = 1 })
	alsoPlenty := seedProduct(t, r, func(p *models.Product) { p.Stock = 4 })

	err := r.AdjustStock(ctx, []StockDelta{
		{ProductID: plenty.ID, Stock: -3, Sold: 3},
		{ProductID: scarce.ID, Stock: -2, Sold: 2},
		{ProductID: alsoPlenty.ID, Stock: -4, Sold: 4},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var adjErr *StockAdjustError
	require.True(t, errors.As(err, &adjErr))
	assert.Equal(t, []uuid.UUID{scarce.ID}, adjErr.ProductIDs)
	assert.Equal(t, 2, adjErr.Reverted)

	for _, p := range []*models.Product{plenty, scarce, alsoPlenty} {
		got := reload(t, r, p)
		assert.Equal(t, p.Stock, got.Stock)
		assert.Equal(t, 0, got.SoldCount)
	}
}

func TestAdjustStock_UnknownProductFails(t *testing.T) {
	r := newTestRepo(t)
	err := r.AdjustStock(context.Background(), []StockDelta{{ProductID: uuid.New(), Stock: 1, Sold: -1}})
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestAdjustStock_StockNeverNegativeSequentially(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	p := seedProduct(t, r, func(p *models.Product) { p.Stock = 5 })

	require.NoError(t, r.AdjustStock(ctx, []StockDelta{{ProductID: p.ID, Stock: -5, Sold: 5}}))
	err := r.AdjustStock(ctx, []StockDelta{{ProductID: p.ID, Stock: -1, Sold: 1}})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, reload(t, r, p).Stock)
}
