package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

type OrderFilter struct {
	UserID        uuid.UUID
	Status        string
	PaymentStatus string
	Offset        int
	Limit         int
}

func withOrderDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

// CreateOrder inserts the order with its line items and history entries.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", number).Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := withOrderDetails(r.DB.WithContext(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder reads the order row FOR UPDATE. sqlite has no row locks, so the clause is skipped there.
func (r *GormRepo) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	q := forUpdate(withOrderDetails(r.DB.WithContext(ctx)))
	if err := q.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter) (int64, []models.Order, error) {
	q := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&models.Order{})
		if f.UserID != uuid.Nil {
			q = q.Where("user_id = ?", f.UserID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.PaymentStatus != "" {
			q = q.Where("payment_status = ?", f.PaymentStatus)
		}
		return q
	}

	var total int64
	if err := q().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, f.Limit)
	if err := withOrderDetails(q()).Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// MarkCancelled flips the order to cancelled unless its status is one of
// blocked. It reports false when the row did not qualify, including when
// another writer got there first.
func (r *GormRepo) MarkCancelled(ctx context.Context, id uuid.UUID, blocked []string, reason string, actor uuid.UUID, at time.Time, paymentStatus string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, blocked).
		Updates(map[string]any{
			"status":              models.OrderCancelled,
			"payment_status":      paymentStatus,
			"cancellation_reason": reason,
			"cancelled_at":        at,
			"cancelled_by":        actor,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) UpdateOrderFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) AppendStatusHistory(ctx context.Context, entry *models.OrderStatusEntry) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

// DeleteOrder purges the order with its lines and history.
func (r *GormRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("order_id = ?", id).Delete(&models.OrderStatusEntry{}).Error
	})
}
