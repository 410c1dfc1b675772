package models

import "github.com/google/uuid"

// Cart aggregates line items for a user or a guest. UserID is nil for guest
// carts; the unguessable cart id is the only protection on those.
type Cart struct {
	BaseModel
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Items  []CartItem `json:"items,omitempty"`
}

// CartItem is one (item, quantity, captured unit price) tuple. Price is a
// snapshot taken when the line was added; it only moves when the quantity is
// updated or the cart is explicitly recalculated.
type CartItem struct {
	BaseModel
	CartID   uuid.UUID `gorm:"type:uuid;index" json:"cart_id"`
	ItemID   uuid.UUID `gorm:"type:uuid;index" json:"item_id"`
	Item     *Item     `json:"item,omitempty"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

// TotalItems sums line quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal sums price times quantity across lines.
func (c Cart) Subtotal() float64 {
	var subtotal float64
	for _, item := range c.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	return subtotal
}
