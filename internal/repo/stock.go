package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// StockDelta is a signed change applied to one product: negative Stock with
// positive Sold for a sale, the inverse for a restore.
type StockDelta struct {
	ProductID uuid.UUID
	Stock     int
	Sold      int
}

func (d StockDelta) inverse() StockDelta {
	return StockDelta{ProductID: d.ProductID, Stock: -d.Stock, Sold: -d.Sold}
}

// StockAdjustError lists the products whose delta could not be applied.
// Every delta that had been applied before the failure was reverted.
type StockAdjustError struct {
	ProductIDs []uuid.UUID
	Reverted   int
}

func (e *StockAdjustError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s), %d adjustment(s) reverted", len(e.ProductIDs), e.Reverted)
}

func (e *StockAdjustError) Unwrap() error { return ErrInsufficientStock }

// AdjustStock applies every delta as a conditional single-row update that
// refuses to take stock below zero. On any refusal the deltas already applied
// are reverted and a *StockAdjustError is returned.
func (r *GormRepo) AdjustStock(ctx context.Context, deltas []StockDelta) error {
	ordered := slices.Clone(deltas)
	// fixed lock order across concurrent callers
	slices.SortFunc(ordered, func(a, b StockDelta) int { return bytes.Compare(a.ProductID[:], b.ProductID[:]) })

	applied := make([]StockDelta, 0, len(ordered))
	var failed []uuid.UUID

	for _, d := range ordered {
		ok, err := r.applyDelta(ctx, d, true)
		if err != nil {
			if rerr := r.revert(ctx, applied); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		if !ok {
			failed = append(failed, d.ProductID)
			continue
		}
		applied = append(applied, d)
	}

	if len(failed) == 0 {
		return nil
	}
	if err := r.revert(ctx, applied); err != nil {
		return errors.Join(&StockAdjustError{ProductIDs: failed}, err)
	}
	return &StockAdjustError{ProductIDs: failed, Reverted: len(applied)}
}

func (r *GormRepo) applyDelta(ctx context.Context, d StockDelta, guarded bool) (bool, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", d.ProductID)
	if guarded {
		q = q.Where("stock + ? >= 0", d.Stock)
	}
	res := q.Updates(map[string]any{
		"stock":      gorm.Expr("stock + ?", d.Stock),
		"sold_count": gorm.Expr("sold_count + ?", d.Sold),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) revert(ctx context.Context, applied []StockDelta) error {
	var errs []error
	for _, d := range applied {
		if _, err := r.applyDelta(ctx, d.inverse(), false); err != nil {
			errs = append(errs, fmt.Errorf("revert %s: %w", d.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// SaleDeltas and RestoreDeltas are built from the same order lines so the two
// directions always use identical quantities.
func SaleDeltas(items []models.OrderItem) []StockDelta {
	out := make([]StockDelta, 0, len(items))
	for _, it := range items {
		out = append(out, StockDelta{ProductID: it.ProductID, Stock: -it.Quantity, Sold: it.Quantity})
	}
	return out
}

func RestoreDeltas(items []models.OrderItem) []StockDelta {
	sale := SaleDeltas(items)
	out := make([]StockDelta, 0, len(sale))
	for _, d := range sale {
		out = append(out, d.inverse())
	}
	return out
}
