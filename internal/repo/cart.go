package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

// GetCart returns the user's lines last touched after notBefore, oldest first.
func (r *GormRepo) GetCart(ctx context.Context, userID uuid.UUID, notBefore time.Time) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND updated_at >= ?", userID, notBefore).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetCartItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) FindCartLine(ctx context.Context, userID, productID uuid.UUID, size, color string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND size = ? AND color = ?", userID, productID, size, color).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

// UpdateCartItem writes the named columns and bumps updated_at, which also
// extends the line's time-to-live.
func (r *GormRepo) UpdateCartItem(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CorrectCartItem persists a reconciliation fix without touching updated_at.
func (r *GormRepo) CorrectCartItem(ctx context.Context, id uuid.UUID, price float64, quantity int) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"price": price, "quantity": quantity}).Error
}

func (r *GormRepo) DeleteCartItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartItem{}).Error
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// RemoveCartProducts drops every line of the user's cart for the given products.
func (r *GormRepo) RemoveCartProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
}

func (r *GormRepo) DeleteExpiredCartItems(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("updated_at < ?", before).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CartCount(ctx context.Context, userID uuid.UUID, notBefore time.Time) (lines int64, units int64, err error) {
	var agg struct {
		Lines int64
		Units int64
	}
	err = r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Select("COUNT(*) AS lines, COALESCE(SUM(quantity), 0) AS units").
		Where("user_id = ? AND updated_at >= ?", userID, notBefore).
		Scan(&agg).Error
	return agg.Lines, agg.Units, err
}

func (r *GormRepo) AllCartItems(ctx context.Context, offset, limit int) (int64, []models.CartItem, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.CartItem{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.CartItem, 0, limit)
	err := r.DB.WithContext(ctx).Order("updated_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// AddWishlistItem is idempotent per (user, product).
func (r *GormRepo) AddWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(item).Error
}

func (r *GormRepo) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	items := []models.WishlistItem{}
	err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *GormRepo) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
