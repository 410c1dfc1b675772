package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/exclusive/internal/models"
	"github.com/example/exclusive/internal/services"
	"github.com/example/exclusive/internal/utils"
)

// OrderHandler manages checkout and order endpoints.
type OrderHandler struct {
	orders *services.OrdersService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *services.OrdersService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	CartID          string              `json:"cartId"`
	IsGuestOrder    bool                `json:"isGuestOrder"`
	GuestUserInfo   *services.GuestInfo `json:"guestUserInfo"`
	ShippingAddress services.Address    `json:"shippingAddress"`
	BillingAddress  *services.Address   `json:"billingAddress"`
	Notes           string              `json:"notes"`
}

// CreateOrder prices the cart and opens a payment intent; the order itself is
// created only after the client completes payment and calls ConfirmOrder.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cart id")
	}

	result, err := h.orders.CreatePaymentIntent(c.Context(), services.CreateOrderInput{
		CartID:          cartID,
		UserID:          currentUserID(c),
		IsGuestOrder:    req.IsGuestOrder,
		GuestInfo:       req.GuestUserInfo,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"message":         "Payment intent created. Complete payment to create order.",
		"clientSecret":    result.ClientSecret,
		"paymentIntentId": result.PaymentIntentID,
		"orderDetails":    result.Details,
	})
}

type confirmOrderRequest struct {
	PaymentIntentID string                `json:"paymentIntentId"`
	OrderDetails    services.OrderDetails `json:"orderDetails"`
}

// ConfirmOrder creates the order once Stripe reports the intent succeeded.
func (h *OrderHandler) ConfirmOrder(c *fiber.Ctx) error {
	var req confirmOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.PaymentIntentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "paymentIntentId is required")
	}

	order, err := h.orders.ConfirmOrder(c.Context(), req.PaymentIntentID, req.OrderDetails)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order":   order,
		"message": "Order created successfully",
	})
}

// GetOrder returns a single order, enforcing ownership on owned orders.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.GetOrderByID(orderID, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(order)
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if userID == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)
	orders, total, err := h.orders.GetUserOrders(*userID, pagination.Limit, pagination.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  total,
		"page":   pagination.Page,
		"limit":  pagination.Limit,
	})
}

// GetGuestOrder looks up a guest order by id plus purchaser email.
func (h *OrderHandler) GetGuestOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	email := c.Query("email")
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email query parameter is required")
	}

	order, err := h.orders.GetGuestOrder(orderID, email)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(order)
}

// GetOrderStatus returns just the order status.
func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	status, err := h.orders.GetOrderStatus(orderID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"status": status})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus transitions an order's status.
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req updateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	switch req.Status {
	case models.OrderStatusConfirmed, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid order status")
	}

	order, err := h.orders.UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(order)
}

// CancelOrder cancels an order unless it was already delivered.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.CancelOrder(orderID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(order)
}

// GetPaymentHistory lists the payment records of an order.
func (h *OrderHandler) GetPaymentHistory(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	payments, err := h.orders.GetPaymentHistory(orderID, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"payments": payments})
}
