package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/models"
)

const (
	freeShippingThreshold = 50.0
	flatShippingRate      = 5.99
	taxRate               = 0.085
)

// Address is the shipping/billing address snapshot serialized onto orders.
type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// GuestInfo identifies a guest purchaser.
type GuestInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CreateOrderInput is the checkout request.
type CreateOrderInput struct {
	CartID          uuid.UUID
	UserID          *uuid.UUID
	IsGuestOrder    bool
	GuestInfo       *GuestInfo
	ShippingAddress Address
	BillingAddress  *Address
	Notes           string
}

// OrderDetails echoes the priced checkout back to the client; it is posted
// back verbatim on confirmation. No order row exists until payment succeeds.
type OrderDetails struct {
	CartID          uuid.UUID  `json:"cartId"`
	UserID          *uuid.UUID `json:"userId,omitempty"`
	IsGuestOrder    bool       `json:"isGuestOrder"`
	GuestInfo       *GuestInfo `json:"guestUserInfo,omitempty"`
	ShippingAddress Address    `json:"shippingAddress"`
	BillingAddress  Address    `json:"billingAddress"`
	Subtotal        float64    `json:"subtotal"`
	ShippingCost    float64    `json:"shippingCost"`
	Tax             float64    `json:"tax"`
	Total           float64    `json:"total"`
	Notes           string     `json:"notes,omitempty"`
}

// PaymentIntentResult is returned from checkout for the frontend to complete
// payment with Stripe.js.
type PaymentIntentResult struct {
	ClientSecret    string       `json:"clientSecret"`
	PaymentIntentID string       `json:"paymentIntentId"`
	Details         OrderDetails `json:"orderDetails"`
}

// OrdersService runs the intent-then-confirm checkout flow and order reads.
type OrdersService struct {
	db       *gorm.DB
	carts    *CartService
	payments PaymentProvider
	email    *EmailService
}

// NewOrdersService constructs an OrdersService.
func NewOrdersService(db *gorm.DB, carts *CartService, payments PaymentProvider, email *EmailService) *OrdersService {
	return &OrdersService{db: db, carts: carts, payments: payments, email: email}
}

// CreatePaymentIntent prices the cart and opens a Stripe payment intent.
// Nothing is written to the database yet.
func (s *OrdersService) CreatePaymentIntent(ctx context.Context, input CreateOrderInput) (*PaymentIntentResult, error) {
	cart, err := s.carts.GetCartByID(input.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	subtotal := cart.Subtotal()
	shipping := shippingCost(subtotal)
	tax := taxOn(subtotal + shipping)
	total := subtotal + shipping + tax

	isGuest := input.UserID == nil || input.IsGuestOrder

	params := CreateIntentParams{
		AmountCents: int64(math.Round(total * 100)),
		Currency:    "usd",
		Metadata: map[string]string{
			"cartId":       input.CartID.String(),
			"isGuestOrder": fmt.Sprintf("%t", isGuest),
			"userId":       metadataUserID(input.UserID),
		},
	}
	if input.GuestInfo != nil {
		params.ReceiptEmail = input.GuestInfo.Email
		params.Shipping = &IntentShipping{
			Name:       input.GuestInfo.Name,
			Line1:      input.ShippingAddress.Address,
			City:       input.ShippingAddress.City,
			State:      input.ShippingAddress.State,
			Country:    input.ShippingAddress.Country,
			PostalCode: input.ShippingAddress.PostalCode,
		}
	}

	intent, err := s.payments.CreateIntent(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Details: OrderDetails{
			CartID:          input.CartID,
			UserID:          input.UserID,
			IsGuestOrder:    isGuest,
			GuestInfo:       input.GuestInfo,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  billing,
			Subtotal:        subtotal,
			ShippingCost:    shipping,
			Tax:             tax,
			Total:           total,
			Notes:           input.Notes,
		},
	}, nil
}

// ConfirmOrder verifies the payment succeeded, then materializes the order:
// order row, line snapshots copied from the cart, a payment record, cart
// cleared, confirmation email fired best-effort.
func (s *OrdersService) ConfirmOrder(ctx context.Context, paymentIntentID string, details OrderDetails) (*models.Order, error) {
	intent, err := s.payments.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	if intent.Status != IntentSucceeded {
		return nil, fmt.Errorf("%w: payment not completed", ErrValidation)
	}

	cart, err := s.carts.GetCartByID(details.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	subtotal := cart.Subtotal()
	shipping := shippingCost(subtotal)
	tax := taxOn(subtotal + shipping)
	total := subtotal + shipping + tax

	shippingJSON, err := json.Marshal(details.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billingJSON, err := json.Marshal(details.BillingAddress)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:                details.UserID,
		ShippingAddress:       string(shippingJSON),
		BillingAddress:        string(billingJSON),
		Subtotal:              subtotal,
		ShippingCost:          shipping,
		Tax:                   tax,
		Total:                 total,
		Status:                models.OrderStatusConfirmed,
		PaymentStatus:         models.PaymentStatusCompleted,
		StripePaymentIntentID: paymentIntentID,
		Notes:                 details.Notes,
		IsGuestOrder:          details.IsGuestOrder,
	}
	if details.GuestInfo != nil {
		guestJSON, err := json.Marshal(details.GuestInfo)
		if err != nil {
			return nil, err
		}
		order.GuestUserInfo = string(guestJSON)
	}

	for _, line := range cart.Items {
		order.Items = append(order.Items, models.OrderItem{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}

	if err := s.db.Create(&order).Error; err != nil {
		return nil, err
	}

	payment := models.PaymentRecord{
		OrderID:               order.ID,
		UserID:                details.UserID,
		StripePaymentIntentID: paymentIntentID,
		Amount:                total,
		Currency:              "USD",
		Status:                IntentSucceeded,
		PaymentMethod:         intent.PaymentMethod,
		Last4:                 intent.CardLast4,
		Brand:                 intent.CardBrand,
		ReceiptURL:            intent.ReceiptURL,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, err
	}

	if _, err := s.carts.ClearCart(details.CartID, details.UserID); err != nil {
		log.Printf("[Orders] failed to clear cart %s after order %s: %v", details.CartID, order.ID, err)
	}

	s.sendConfirmationEmail(order, details)

	return s.GetOrderByID(order.ID, details.UserID)
}

// GetOrderByID loads an order. Owned orders reject any caller other than the
// owner, anonymous callers included.
func (s *OrdersService) GetOrderByID(orderID uuid.UUID, userID *uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items.Item").Preload("Payments").First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if order.UserID != nil && (userID == nil || *order.UserID != *userID) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}

	return &order, nil
}

// GetUserOrders lists the user's orders, newest first.
func (s *OrdersService) GetUserOrders(userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	var total int64
	if err := s.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := s.db.Preload("Items.Item").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// GetGuestOrder looks up a guest order by id and purchaser email.
func (s *OrdersService) GetGuestOrder(orderID uuid.UUID, email string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items.Item").
		Where("id = ? AND guest_user_info LIKE ? ESCAPE '\\'", orderID, "%"+escapeLike(email)+"%").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("guest order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderStatus returns just the status string.
func (s *OrdersService) GetOrderStatus(orderID uuid.UUID) (string, error) {
	var order models.Order
	err := s.db.Select("status").First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// UpdateOrderStatus transitions an order to the given status.
func (s *OrdersService) UpdateOrderStatus(orderID uuid.UUID, status string) (*models.Order, error) {
	var order models.Order
	err := s.db.First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&order).Update("status", status).Error; err != nil {
		return nil, err
	}

	return s.GetOrderByID(orderID, order.UserID)
}

// CancelOrder cancels an order unless it has already been delivered.
func (s *OrdersService) CancelOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: cannot cancel delivered order", ErrValidation)
	}

	if err := s.db.Model(&order).Update("status", models.OrderStatusCancelled).Error; err != nil {
		return nil, err
	}

	return s.GetOrderByID(orderID, order.UserID)
}

// GetPaymentHistory lists payment records for an order, after an ownership
// check against authenticated callers.
func (s *OrdersService) GetPaymentHistory(orderID uuid.UUID, userID *uuid.UUID) ([]models.PaymentRecord, error) {
	var order models.Order
	err := s.db.Preload("Payments").First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if userID != nil && (order.UserID == nil || *order.UserID != *userID) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}

	return order.Payments, nil
}

func (s *OrdersService) sendConfirmationEmail(order models.Order, details OrderDetails) {
	name := "Customer"
	email := ""
	if details.GuestInfo != nil {
		name = details.GuestInfo.Name
		email = details.GuestInfo.Email
	}

	if details.UserID != nil && !details.IsGuestOrder {
		var user models.User
		if err := s.db.First(&user, "id = ?", *details.UserID).Error; err == nil {
			name = user.Name
			email = user.Email
		} else {
			log.Printf("[Orders] failed to load user %s for confirmation email: %v", *details.UserID, err)
		}
	}

	if email == "" {
		return
	}

	addr := details.ShippingAddress
	data := OrderConfirmationData{
		Name:    name,
		Email:   email,
		OrderID: order.ID.String(),
		Total:   order.Total,
		ShippingAddress: strings.Join([]string{
			addr.Address, addr.City, addr.State + " " + addr.PostalCode, addr.Country,
		}, ", "),
	}
	if err := s.email.SendOrderConfirmationEmail(data); err != nil {
		log.Printf("[Orders] failed to send confirmation email for order %s: %v", order.ID, err)
	}
}

func shippingCost(subtotal float64) float64 {
	if subtotal >= freeShippingThreshold {
		return 0
	}
	return flatShippingRate
}

func taxOn(amount float64) float64 {
	return math.Round(amount*taxRate*100) / 100
}

func metadataUserID(userID *uuid.UUID) string {
	if userID == nil {
		return "guest"
	}
	return userID.String()
}

// escapeLike neutralizes LIKE wildcards in caller-supplied text so an email
// of "%" cannot match arbitrary rows.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
