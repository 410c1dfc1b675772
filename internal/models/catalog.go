package models

import "github.com/google/uuid"

// Item is a catalog entry referenced by carts, orders and flash sales.
type Item struct {
	BaseModel
	Name        string      `json:"name"`
	Slug        string      `gorm:"uniqueIndex" json:"slug"`
	Description string      `json:"description"`
	ImageURL    string      `json:"image_url"`
	Prices      []ItemPrice `json:"prices,omitempty"`
}

// ItemPrice is a price record for an item. At most one record per item is
// active; SalePrice is honored only when positive and strictly below Price.
type ItemPrice struct {
	BaseModel
	ItemID    uuid.UUID `gorm:"type:uuid;index" json:"item_id"`
	Price     float64   `json:"price"`
	SalePrice float64   `json:"sale_price"`
	IsActive  bool      `json:"is_active"`
}

// EffectivePrice returns the unit price captured by carts: the sale price
// when it is positive and strictly below the list price, else the list price.
func (p ItemPrice) EffectivePrice() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.Price {
		return p.SalePrice
	}
	return p.Price
}
