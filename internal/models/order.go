package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
	OrderReturned   = "returned"
)

const (
	PaymentPending           = "pending"
	PaymentPaid              = "paid"
	PaymentFailed            = "failed"
	PaymentRefunded          = "refunded"
	PaymentPartiallyRefunded = "partially_refunded"
)

// OrderStatuses is ordered along the normal fulfilment path.
var OrderStatuses = []string{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderReturned, OrderCancelled,
}

var PaymentStatuses = []string{
	PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded,
}

var PaymentMethods = []string{"cash_on_delivery", "mpesa", "card", "bank_transfer"}

// NonCancellableStatuses block owner or admin cancellation.
var NonCancellableStatuses = []string{OrderShipped, OrderDelivered, OrderCancelled}

func ValidOrderStatus(s string) bool    { return slices.Contains(OrderStatuses, s) }
func ValidPaymentStatus(s string) bool  { return slices.Contains(PaymentStatuses, s) }
func ValidPaymentMethod(s string) bool  { return slices.Contains(PaymentMethods, s) }
func CanBeCancelled(status string) bool { return !slices.Contains(NonCancellableStatuses, status) }

// IsForwardTransition reports whether next does not move back along OrderStatuses.
// Cancellation is reachable from anywhere and never counts as backward.
func IsForwardTransition(from, to string) bool {
	if to == OrderCancelled {
		return true
	}
	if from == OrderCancelled {
		return false
	}
	return slices.Index(OrderStatuses, to) >= slices.Index(OrderStatuses, from)
}

type ShippingAddress struct {
	FullName   string `gorm:"not null;default:''" json:"fullName"`
	Phone      string `gorm:"not null;default:''" json:"phone"`
	Street     string `gorm:"not null"            json:"street"`
	City       string `gorm:"not null"            json:"city"`
	State      string `gorm:"not null;default:''" json:"state"`
	PostalCode string `gorm:"not null;default:''" json:"postalCode"`
	Country    string `gorm:"not null"            json:"country"`
}

type Order struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey"                             json:"id"`
	OrderNumber        string             `gorm:"not null;uniqueIndex"                             json:"orderNumber"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index"                         json:"userId"`
	Items              []OrderItem        `gorm:"foreignKey:OrderID"                               json:"items"`
	ShippingAddress    ShippingAddress    `gorm:"embedded;embeddedPrefix:shipping_"                json:"shippingAddress"`
	PaymentMethod      string             `gorm:"not null"                                         json:"paymentMethod"`
	PaymentDetails     map[string]string  `gorm:"type:text;serializer:json"                        json:"paymentDetails,omitempty"`
	Subtotal           float64            `gorm:"not null"                                         json:"subtotal"`
	ShippingCost       float64            `gorm:"not null;default:0"                               json:"shippingCost"`
	TaxAmount          float64            `gorm:"not null;default:0"                               json:"taxAmount"`
	DiscountAmount     float64            `gorm:"not null;default:0"                               json:"discountAmount"`
	TotalAmount        float64            `gorm:"not null"                                         json:"totalAmount"`
	Status             string             `gorm:"not null;index"                                   json:"status"`
	PaymentStatus      string             `gorm:"not null;index"                                   json:"paymentStatus"`
	TrackingNumber     string             `gorm:"not null;default:''"                              json:"trackingNumber,omitempty"`
	EstimatedDelivery  *time.Time         `                                                        json:"estimatedDelivery,omitempty"`
	Notes              string             `gorm:"not null;default:''"                              json:"notes,omitempty"`
	CancellationReason string             `gorm:"not null;default:''"                              json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time         `                                                        json:"cancelledAt,omitempty"`
	CancelledBy        *uuid.UUID         `gorm:"type:uuid"                                        json:"cancelledBy,omitempty"`
	StatusHistory      []OrderStatusEntry `gorm:"foreignKey:OrderID"                               json:"statusHistory"`
	CreatedAt          time.Time          `gorm:"index"                                            json:"createdAt"`
	UpdatedAt          time.Time          `                                                        json:"updatedAt"`
}

// OrderItem is a snapshot of the product at purchase time and is never updated.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                      json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"                                  json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"                                  json:"productId"`
	Title     string    `gorm:"not null"                                                  json:"title"`
	Price     float64   `gorm:"not null"                                                  json:"price"`
	Quantity  int       `gorm:"not null;check:chk_order_items_quantity,quantity > 0"      json:"quantity"`
	Image     string    `gorm:"not null;default:''"                                       json:"image"`
}

// OrderStatusEntry rows are insert-only.
type OrderStatusEntry struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"-"`
	Status    string     `gorm:"not null"                 json:"status"`
	ActorID   *uuid.UUID `gorm:"type:uuid"                json:"actorId,omitempty"`
	ActorRole string     `gorm:"not null;default:''"      json:"actorRole,omitempty"`
	Notes     string     `gorm:"not null;default:''"      json:"notes,omitempty"`
	CreatedAt time.Time  `gorm:"index"                    json:"timestamp"`
}

func (OrderStatusEntry) TableName() string { return "order_status_history" }
