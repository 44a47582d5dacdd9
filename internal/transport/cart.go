package transport

import "github.com/google/uuid"

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}
