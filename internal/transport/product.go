package transport

import "time"

type CreateProductRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	DiscountedPrice *float64 `json:"discountedPrice"`
	Stock           int      `json:"stock"`
	Brand           string   `json:"brand"`
	Categories      []string `json:"categories"`
	Images          []string `json:"images"`
	MOQ             *int     `json:"moq"`
	IsFeatured      bool     `json:"isFeatured"`
	IsActive        *bool    `json:"isActive"`
}

// ProductUpdate lists every field an admin may change; nil means unchanged.
type ProductUpdate struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Price           *float64  `json:"price"`
	DiscountedPrice *float64  `json:"discountedPrice"`
	ClearDiscount   bool      `json:"clearDiscount"`
	Stock           *int      `json:"stock"`
	Brand           *string   `json:"brand"`
	Categories      *[]string `json:"categories"`
	Images          *[]string `json:"images"`
	MOQ             *int      `json:"moq"`
	IsFeatured      *bool     `json:"isFeatured"`
	IsActive        *bool     `json:"isActive"`
}

type ProductListQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Category  string
	Brand     string
	Search    string
	MinPrice  *float64
	MaxPrice  *float64
	MinMOQ    *int
	MaxMOQ    *int
	InStock   *bool
	Featured  *bool
}

type RatingRequest struct {
	Star    int    `json:"star"`
	Comment string `json:"comment"`
}

type QuoteRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
	Quantity int    `json:"quantity"`
	Message  string `json:"message"`
}

type CreateCouponRequest struct {
	Code          string     `json:"code"`
	DiscountType  string     `json:"discountType"`
	DiscountValue float64    `json:"discountValue"`
	MinSubtotal   float64    `json:"minSubtotal"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}
