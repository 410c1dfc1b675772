package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/models"
)

const maxQuantityPerItem = 10

// CartService manages cart aggregates for users and guests.
//
// Ownership is enforced only against other authenticated users: anonymous
// callers may read and mutate any cart they know the id of, which keeps guest
// checkout working across login boundaries. Concurrent quantity updates are
// read-then-write and unguarded, matching the rest of the system.
type CartService struct {
	db *gorm.DB
}

// NewCartService constructs a CartService.
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// GetUserCart returns the user's cart, creating one when none exists.
func (s *CartService) GetUserCart(userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: &userID}
		if err := s.db.Create(&cart).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return s.GetCartByID(cart.ID)
}

// GetCartByID loads a cart with its items, newest line first.
func (s *CartService) GetCartByID(cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Preload("Items.Item").
		First(&cart, "id = ?", cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCart creates an empty cart, owned when userID is non-nil.
func (s *CartService) CreateCart(userID *uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := s.db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return s.GetCartByID(cart.ID)
}

// AddToCart adds an item to the cart, capturing the current effective unit
// price. Adding an item already in the cart accumulates quantity; pushing the
// line past the per-item cap fails rather than clamping. The add path runs no
// ownership check.
func (s *CartService) AddToCart(cartID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 || quantity > maxQuantityPerItem {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, maxQuantityPerItem)
	}

	var item models.Item
	err := s.db.Preload("Prices").First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var existing models.CartItem
	err = s.db.Where("cart_id = ? AND item_id = ?", cartID, itemID).First(&existing).Error
	switch {
	case err == nil:
		newQuantity := existing.Quantity + quantity
		if newQuantity > maxQuantityPerItem {
			return nil, fmt.Errorf("%w: maximum quantity per item is %d", ErrValidation, maxQuantityPerItem)
		}
		if err := s.db.Model(&existing).Update("quantity", newQuantity).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		line := models.CartItem{
			CartID:   cartID,
			ItemID:   itemID,
			Quantity: quantity,
			Price:    capturedUnitPrice(item),
		}
		if err := s.db.Create(&line).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.GetCartByID(cartID)
}

// UpdateCartItem sets a line's quantity. Zero removes the line; any other
// quantity also re-captures the unit price so a changed sale status is
// picked up.
func (s *CartService) UpdateCartItem(cartID, cartItemID uuid.UUID, quantity int, userID *uuid.UUID) (*models.Cart, error) {
	if quantity < 0 || quantity > maxQuantityPerItem {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", ErrValidation, maxQuantityPerItem)
	}

	if _, err := s.verifyCartAccess(cartID, userID); err != nil {
		return nil, err
	}

	var line models.CartItem
	err := s.db.Preload("Item.Prices").
		Where("id = ? AND cart_id = ?", cartItemID, cartID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart item %s: %w", cartItemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		if err := s.db.Delete(&line).Error; err != nil {
			return nil, err
		}
		return s.GetCartByID(cartID)
	}

	price := line.Price
	if line.Item != nil {
		if captured := capturedUnitPrice(*line.Item); captured > 0 {
			price = captured
		}
	}

	updates := map[string]interface{}{"quantity": quantity, "price": price}
	if err := s.db.Model(&line).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.GetCartByID(cartID)
}

// RemoveFromCart deletes a line item. When the named cart is gone the line's
// actual cart is looked up and used instead, after re-checking access; this
// recovers clients holding a stale cart id.
func (s *CartService) RemoveFromCart(cartID, cartItemID uuid.UUID, userID *uuid.UUID) (*models.Cart, error) {
	if _, err := s.verifyCartAccess(cartID, userID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		recoveredID, ok, recErr := s.RecoverCartFromItem(cartItemID)
		if recErr != nil || !ok {
			return nil, err
		}
		log.Printf("[Cart] line %s found in cart %s, recovering", cartItemID, recoveredID)
		cartID = recoveredID
		if _, err := s.verifyCartAccess(cartID, userID); err != nil {
			return nil, err
		}
	}

	var line models.CartItem
	err := s.db.Where("id = ? AND cart_id = ?", cartItemID, cartID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart item %s: %w", cartItemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(&line).Error; err != nil {
		return nil, err
	}

	return s.GetCartByID(cartID)
}

// ClearCart removes every line from the cart.
func (s *CartService) ClearCart(cartID uuid.UUID, userID *uuid.UUID) (*models.Cart, error) {
	if _, err := s.verifyCartAccess(cartID, userID); err != nil {
		return nil, err
	}

	if err := s.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}

	return s.GetCartByID(cartID)
}

// RecalculateCartPrices re-captures every line's unit price from the current
// active price record. This is the only mechanism that propagates catalog
// price changes into existing carts.
func (s *CartService) RecalculateCartPrices(cartID uuid.UUID, userID *uuid.UUID) (*models.Cart, error) {
	if _, err := s.verifyCartAccess(cartID, userID); err != nil {
		return nil, err
	}

	var lines []models.CartItem
	if err := s.db.Preload("Item.Prices").Where("cart_id = ?", cartID).Find(&lines).Error; err != nil {
		return nil, err
	}

	for _, line := range lines {
		if line.Item == nil {
			continue
		}
		price := capturedUnitPrice(*line.Item)
		if price > 0 && price != line.Price {
			if err := s.db.Model(&models.CartItem{}).Where("id = ?", line.ID).
				Update("price", price).Error; err != nil {
				return nil, err
			}
		}
	}

	return s.GetCartByID(cartID)
}

// CleanupOrphanedCarts deletes empty guest carts older than 24 hours and
// line items whose cart no longer exists.
func (s *CartService) CleanupOrphanedCarts() (deletedCarts int64, deletedItems int64, err error) {
	cartResult := s.db.
		Where("user_id IS NULL").
		Where("created_at < ?", time.Now().Add(-24*time.Hour)).
		Where("id NOT IN (?)", s.db.Model(&models.CartItem{}).Select("cart_id")).
		Delete(&models.Cart{})
	if cartResult.Error != nil {
		return 0, 0, cartResult.Error
	}

	itemResult := s.db.
		Where("cart_id NOT IN (?)", s.db.Model(&models.Cart{}).Select("id")).
		Delete(&models.CartItem{})
	if itemResult.Error != nil {
		return cartResult.RowsAffected, 0, itemResult.Error
	}

	return cartResult.RowsAffected, itemResult.RowsAffected, nil
}

func (s *CartService) verifyCartAccess(cartID uuid.UUID, userID *uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.First(&cart, "id = ?", cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	// Anonymous callers bypass the owner check entirely.
	if userID != nil && cart.UserID != nil && *cart.UserID != *userID {
		return nil, fmt.Errorf("cart %s: %w", cartID, ErrForbidden)
	}

	return &cart, nil
}

func capturedUnitPrice(item models.Item) float64 {
	for _, price := range item.Prices {
		if price.IsActive {
			return price.EffectivePrice()
		}
	}
	return 0
}
