package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinCartQuantity = 1
	MaxCartQuantity = 10
)

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                             json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line"     json:"userId"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line"     json:"productId"`
	Size      string    `gorm:"not null;default:'';uniqueIndex:idx_cart_line"    json:"size"`
	Color     string    `gorm:"not null;default:'';uniqueIndex:idx_cart_line"    json:"color"`
	Quantity  int       `gorm:"not null;check:chk_cart_quantity,quantity BETWEEN 1 AND 10" json:"quantity"`
	Price     float64   `gorm:"not null"                                         json:"price"`
	Title     string    `gorm:"not null"                                         json:"title"`
	Image     string    `gorm:"not null;default:''"                              json:"image"`
	CreatedAt time.Time `                                                        json:"createdAt"`
	UpdatedAt time.Time `gorm:"index"                                            json:"updatedAt"`
}

type WishlistItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product" json:"userId"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product" json:"productId"`
	Product   *Product  `gorm:"foreignKey:ProductID"                                json:"product,omitempty"`
	CreatedAt time.Time `                                                           json:"createdAt"`
}

const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

type Coupon struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"   json:"id"`
	Code          string     `gorm:"not null;uniqueIndex"   json:"code"`
	DiscountType  string     `gorm:"not null"               json:"discountType"`
	DiscountValue float64    `gorm:"not null"               json:"discountValue"`
	MinSubtotal   float64    `gorm:"not null;default:0"     json:"minSubtotal"`
	ExpiresAt     *time.Time `                              json:"expiresAt,omitempty"`
	IsActive      bool       `gorm:"not null"               json:"isActive"`
	CreatedAt     time.Time  `                              json:"createdAt"`
}
