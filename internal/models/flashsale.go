package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// FlashSale is a time-boxed discount campaign over a set of items.
type FlashSale struct {
	BaseModel
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	DiscountPercent float64         `json:"discount_percent"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	IsActive        bool            `json:"is_active"`
	Items           []FlashSaleItem `json:"items,omitempty"`
}

// FlashSaleItem links a catalog item into a flash sale.
type FlashSaleItem struct {
	BaseModel
	FlashSaleID uuid.UUID `gorm:"type:uuid;index" json:"flash_sale_id"`
	ItemID      uuid.UUID `gorm:"type:uuid;index" json:"item_id"`
	Item        *Item     `json:"item,omitempty"`
	IsActive    bool      `json:"is_active"`
}

// OriginalPrice back-computes the crossed-out list price the storefront
// shows next to a discounted sale price.
func (f FlashSale) OriginalPrice(salePrice float64) float64 {
	if f.DiscountPercent <= 0 || f.DiscountPercent >= 100 {
		return salePrice
	}
	original := salePrice / (1 - f.DiscountPercent/100)
	return math.Round(original*100) / 100
}

// SecondsRemaining reports how long the sale window stays open from now,
// clamped at zero once the end date has passed.
func (f FlashSale) SecondsRemaining(now time.Time) int64 {
	remaining := int64(f.EndDate.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
