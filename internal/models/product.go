package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"                               json:"id"`
	Title           string    `gorm:"not null"                                           json:"title"`
	Description     string    `gorm:"not null;default:''"                                json:"description"`
	Price           float64   `gorm:"not null"                                           json:"price"`
	DiscountedPrice *float64  `                                                          json:"discountedPrice,omitempty"`
	Stock           int       `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	IsActive        bool      `gorm:"not null;index"                                     json:"isActive"`
	IsFeatured      bool      `gorm:"not null;default:false"                             json:"isFeatured"`
	Brand           string    `gorm:"not null;index"                                     json:"brand"`
	Categories      []string  `gorm:"type:text;serializer:json"                          json:"categories"`
	Images          []string  `gorm:"type:text;serializer:json"                          json:"images"`
	MOQ             int       `gorm:"column:moq;not null;default:1"                      json:"moq"`
	SoldCount       int       `gorm:"not null;default:0"                                 json:"soldCount"`
	ViewCount       int       `gorm:"not null;default:0"                                 json:"viewCount"`
	AverageRating   float64   `gorm:"not null;default:0"                                 json:"averageRating"`
	RatingCount     int       `gorm:"not null;default:0"                                 json:"ratingCount"`
	Ratings         []Rating  `gorm:"foreignKey:ProductID"                               json:"ratings,omitempty"`
	CreatedAt       time.Time `gorm:"index"                                              json:"createdAt"`
	UpdatedAt       time.Time `                                                          json:"updatedAt"`
}

// EffectivePrice is what a buyer pays per unit right now.
func (p *Product) EffectivePrice() float64 {
	if p.DiscountedPrice != nil && *p.DiscountedPrice > 0 && *p.DiscountedPrice < p.Price {
		return *p.DiscountedPrice
	}
	return p.Price
}

func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                     json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_product_user" json:"productId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_product_user" json:"userId"`
	UserName  string    `gorm:"not null;default:''"                                      json:"userName"`
	Star      int       `gorm:"not null;check:chk_ratings_star,star BETWEEN 1 AND 5"     json:"star"`
	Comment   string    `gorm:"not null;default:''"                                      json:"comment"`
	CreatedAt time.Time `                                                                json:"createdAt"`
	UpdatedAt time.Time `                                                                json:"updatedAt"`
}
