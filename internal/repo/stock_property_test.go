package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

// Any sequence of adjustments leaves stock non-negative and either applies a
// whole batch or none of it.
func TestAdjustStock_Property(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		const n = 3
		products := make([]*models.Product, n)
		stock := make(map[uuid.UUID]int, n)
		sold := make(map[uuid.UUID]int, n)
		for i := range products {
			initial := rapid.IntRange(0, 8).Draw(rt, "initial")
			products[i] = seedProduct(t, r, func(p *models.Product) { p.Stock = initial })
			stock[products[i].ID] = initial
		}

		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for range steps {
			var batch []StockDelta
			for _, p := range products {
				if !rapid.Bool().Draw(rt, "touch") {
					continue
				}
				d := rapid.IntRange(-6, 6).Draw(rt, "delta")
				batch = append(batch, StockDelta{ProductID: p.ID, Stock: d, Sold: -d})
			}

			fits := true
			for _, d := range batch {
				if stock[d.ProductID]+d.Stock < 0 {
					fits = false
				}
			}

			err := r.AdjustStock(ctx, batch)
			switch {
			case fits && err != nil:
				rt.Fatalf("batch %v should apply: %v", batch, err)
			case !fits && !errors.Is(err, ErrInsufficientStock):
				rt.Fatalf("batch %v should be refused, got %v", batch, err)
			}
			if fits {
				for _, d := range batch {
					stock[d.ProductID] += d.Stock
					sold[d.ProductID] += d.Sold
				}
			}

			for _, p := range products {
				got, err := r.GetProduct(ctx, p.ID)
				if err != nil {
					rt.Fatalf("reload: %v", err)
				}
				if got.Stock < 0 {
					rt.Fatalf("stock went negative: %d", got.Stock)
				}
				if got.Stock != stock[p.ID] || got.SoldCount != sold[p.ID] {
					rt.Fatalf("product %s: stock %d sold %d, want %d %d", p.ID, got.Stock, got.SoldCount, stock[p.ID], sold[p.ID])
				}
			}
		}
	})
}
