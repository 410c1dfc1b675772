package models

import "github.com/google/uuid"

// Order statuses.
const (
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
)

// Order is created only after payment confirmation. Guest info and addresses
// are stored as serialized JSON snapshots; the record is immutable apart from
// status transitions.
type Order struct {
	BaseModel
	UserID                *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	GuestUserInfo         string          `json:"guest_user_info,omitempty"`
	ShippingAddress       string          `json:"shipping_address"`
	BillingAddress        string          `json:"billing_address"`
	Subtotal              float64         `json:"subtotal"`
	ShippingCost          float64         `json:"shipping_cost"`
	Tax                   float64         `json:"tax"`
	Total                 float64         `json:"total"`
	Status                string          `json:"status"`
	PaymentStatus         string          `json:"payment_status"`
	StripePaymentIntentID string          `gorm:"index" json:"stripe_payment_intent_id"`
	Notes                 string          `json:"notes"`
	IsGuestOrder          bool            `json:"is_guest_order"`
	Items                 []OrderItem     `json:"items,omitempty"`
	Payments              []PaymentRecord `json:"payments,omitempty"`
}

// OrderItem snapshots one cart line at confirmation time.
type OrderItem struct {
	BaseModel
	OrderID  uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ItemID   uuid.UUID `gorm:"type:uuid;index" json:"item_id"`
	Item     *Item     `json:"item,omitempty"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

// PaymentRecord captures the outcome of a Stripe payment for an order.
type PaymentRecord struct {
	BaseModel
	OrderID               uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	UserID                *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	StripePaymentIntentID string     `json:"stripe_payment_intent_id"`
	Amount                float64    `json:"amount"`
	Currency              string     `json:"currency"`
	Status                string     `json:"status"`
	PaymentMethod         string     `json:"payment_method"`
	Last4                 string     `json:"last4,omitempty"`
	Brand                 string     `json:"brand,omitempty"`
	ReceiptURL            string     `json:"receipt_url,omitempty"`
}
