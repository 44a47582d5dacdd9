package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// CreateOrderRequest carries no prices per line; they are read from the catalog.
type CreateOrderRequest struct {
	Items           []CreateOrderItem      `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	PaymentDetails  map[string]string      `json:"paymentDetails"`
	TotalAmount     float64                `json:"totalAmount"`
	ShippingCost    float64                `json:"shippingCost"`
	TaxAmount       float64                `json:"taxAmount"`
	DiscountAmount  float64                `json:"discountAmount"`
	Notes           string                 `json:"notes"`
}

type UpdateOrderRequest struct {
	Status            *string    `json:"status"`
	PaymentStatus     *string    `json:"paymentStatus"`
	TrackingNumber    *string    `json:"trackingNumber"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	Notes             *string    `json:"notes"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderListQuery struct {
	Status        string
	PaymentStatus string
	Page          int
	Limit         int
}
