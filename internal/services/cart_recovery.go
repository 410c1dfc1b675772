package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/models"
)

// Best-effort cart recovery. Clients occasionally hold a cart id that no
// longer exists (cleared local storage, merged carts); these helpers walk a
// fallback chain instead of stranding them: line item's real cart, then the
// user's most recent cart, then the most recent guest cart, then a fresh one.

// RecoverCartFromItem resolves the cart a line item actually belongs to.
func (s *CartService) RecoverCartFromItem(cartItemID uuid.UUID) (uuid.UUID, bool, error) {
	var line models.CartItem
	err := s.db.First(&line, "id = ?", cartItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	var count int64
	if err := s.db.Model(&models.Cart{}).Where("id = ?", line.CartID).Count(&count).Error; err != nil {
		return uuid.Nil, false, err
	}

	return line.CartID, count > 0, nil
}

// FindUserRecentCart returns the user's most recently updated cart, if any.
func (s *CartService) FindUserRecentCart(userID uuid.UUID) (uuid.UUID, bool, error) {
	var cart models.Cart
	err := s.db.Where("user_id = ?", userID).Order("updated_at desc").First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return cart.ID, true, nil
}

// FindRecentGuestCart returns the most recently updated guest cart, if any.
func (s *CartService) FindRecentGuestCart() (uuid.UUID, bool, error) {
	var cart models.Cart
	err := s.db.Where("user_id IS NULL").Order("updated_at desc").First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return cart.ID, true, nil
}

// CreateRecoveryCart creates a fresh cart and migrates whatever lines survive
// from the old one. Individual line failures are logged and skipped.
func (s *CartService) CreateRecoveryCart(userID *uuid.UUID, oldCartID *uuid.UUID) (uuid.UUID, int, error) {
	cart := models.Cart{UserID: userID}
	if err := s.db.Create(&cart).Error; err != nil {
		return uuid.Nil, 0, err
	}

	migrated := 0
	if oldCartID != nil {
		var lines []models.CartItem
		if err := s.db.Where("cart_id = ?", *oldCartID).Find(&lines).Error; err != nil {
			return cart.ID, 0, err
		}

		for _, line := range lines {
			copied := models.CartItem{
				CartID:   cart.ID,
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Price:    line.Price,
			}
			if err := s.db.Create(&copied).Error; err != nil {
				log.Printf("[Cart] failed to migrate line %s: %v", line.ID, err)
				continue
			}
			migrated++
		}
	}

	return cart.ID, migrated, nil
}
