package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/exclusive/internal/middleware"
	"github.com/example/exclusive/internal/models"
	"github.com/example/exclusive/internal/services"
)

// CartHandler manages cart endpoints for users and guests.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GetUserCart returns the authenticated user's cart, creating it on first use.
func (h *CartHandler) GetUserCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.carts.GetUserCart(userID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(cartResponse(cart))
}

// CreateCart creates an empty guest cart.
func (h *CartHandler) CreateCart(c *fiber.Ctx) error {
	cart, err := h.carts.CreateCart(nil)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(cartResponse(cart))
}

// GetCart returns any cart by id. Knowing the id is the only requirement;
// guest checkout depends on that.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	cartID, err := uuid.Parse(c.Params("cartId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cart id")
	}

	cart, err := h.carts.GetCartByID(cartID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(cartResponse(cart))
}

type addToCartRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// AddToCart adds an item to the cart named by the cartId query param.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	cartID, err := cartIDQuery(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	cart, err := h.carts.AddToCart(cartID, itemID, req.Quantity)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"cart":    cartResponse(cart),
		"message": "Item added to cart",
	})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets a line's quantity; zero removes it.
func (h *CartHandler) UpdateCartItem(c *fiber.Ctx) error {
	cartID, err := cartIDQuery(c)
	if err != nil {
		return err
	}

	cartItemID, err := uuid.Parse(c.Params("cartItemId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cart item id")
	}

	var req updateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cart, err := h.carts.UpdateCartItem(cartID, cartItemID, req.Quantity, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	message := "Cart updated successfully"
	if req.Quantity == 0 {
		message = "Item removed from cart"
	}

	return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": message})
}

// RemoveFromCart deletes a line item.
func (h *CartHandler) RemoveFromCart(c *fiber.Ctx) error {
	cartID, err := cartIDQuery(c)
	if err != nil {
		return err
	}

	cartItemID, err := uuid.Parse(c.Params("cartItemId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cart item id")
	}

	cart, err := h.carts.RemoveFromCart(cartID, cartItemID, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": "Item removed from cart"})
}

// ClearCart removes every line from the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	cartID, err := cartIDQuery(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.ClearCart(cartID, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": "Cart cleared successfully"})
}

// RecalculateCart re-captures line prices from the current catalog prices.
func (h *CartHandler) RecalculateCart(c *fiber.Ctx) error {
	cartID, err := uuid.Parse(c.Params("cartId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cart id")
	}

	cart, err := h.carts.RecalculateCartPrices(cartID, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": "Cart prices recalculated successfully"})
}

type recoverCartRequest struct {
	CartItemID string `json:"cartItemId"`
	OldCartID  string `json:"oldCartId"`
}

// RecoverCart walks the recovery fallback chain: the line item's actual cart,
// the user's most recent cart, the most recent guest cart, then a fresh cart
// with whatever lines migrate from the old one.
func (h *CartHandler) RecoverCart(c *fiber.Ctx) error {
	var req recoverCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID := currentUserID(c)

	if req.CartItemID != "" {
		if cartItemID, err := uuid.Parse(req.CartItemID); err == nil {
			cartID, exists, err := h.carts.RecoverCartFromItem(cartItemID)
			if err != nil {
				return err
			}
			if exists {
				cart, err := h.carts.GetCartByID(cartID)
				if err != nil {
					return serviceError(err)
				}
				return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": "Cart recovered"})
			}
		}
	}

	if userID != nil {
		cartID, found, err := h.carts.FindUserRecentCart(*userID)
		if err != nil {
			return err
		}
		if found {
			cart, err := h.carts.GetCartByID(cartID)
			if err != nil {
				return serviceError(err)
			}
			return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": "Cart recovered"})
		}
	} else {
		cartID, found, err := h.carts.FindRecentGuestCart()
		if err != nil {
			return err
		}
		if found {
			cart, err := h.carts.GetCartByID(cartID)
			if err != nil {
				return serviceError(err)
			}
			return c.JSON(fiber.Map{"cart": cartResponse(cart), "message": "Cart recovered"})
		}
	}

	var oldCartID *uuid.UUID
	if req.OldCartID != "" {
		if parsed, err := uuid.Parse(req.OldCartID); err == nil {
			oldCartID = &parsed
		}
	}

	cartID, migrated, err := h.carts.CreateRecoveryCart(userID, oldCartID)
	if err != nil {
		return err
	}

	cart, err := h.carts.GetCartByID(cartID)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"cart":          cartResponse(cart),
		"migratedItems": migrated,
		"message":       "New cart created",
	})
}

// CleanupCarts deletes stale guest carts and orphaned line items.
func (h *CartHandler) CleanupCarts(c *fiber.Ctx) error {
	deletedCarts, deletedItems, err := h.carts.CleanupOrphanedCarts()
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"deletedCarts": deletedCarts,
		"deletedItems": deletedItems,
	})
}

func cartIDQuery(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Query("cartId")
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "cartId query parameter is required")
	}

	cartID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid cart id")
	}

	return cartID, nil
}

func currentUserID(c *fiber.Ctx) *uuid.UUID {
	if userID, ok := middleware.GetCurrentUserID(c); ok {
		return &userID
	}
	return nil
}

func cartResponse(cart *models.Cart) fiber.Map {
	items := make([]fiber.Map, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, fiber.Map{
			"id":        line.ID,
			"itemId":    line.ItemID,
			"item":      line.Item,
			"quantity":  line.Quantity,
			"price":     line.Price,
			"createdAt": line.CreatedAt,
			"updatedAt": line.UpdatedAt,
		})
	}

	subtotal := cart.Subtotal()

	return fiber.Map{
		"id":         cart.ID,
		"userId":     cart.UserID,
		"items":      items,
		"totalItems": cart.TotalItems(),
		"subtotal":   subtotal,
		"total":      subtotal,
		"createdAt":  cart.CreatedAt,
		"updatedAt":  cart.UpdatedAt,
	}
}
