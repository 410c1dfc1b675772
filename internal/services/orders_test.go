package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/models"
)

// fakePaymentProvider records created intents and reports a fixed status on
// retrieval.
type fakePaymentProvider struct {
	retrieveStatus string
	created        []CreateIntentParams
}

func (f *fakePaymentProvider) CreateIntent(_ context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	f.created = append(f.created, params)
	return &PaymentIntent{
		ID:           "pi_test_123",
		ClientSecret: "pi_test_123_secret",
		Status:       "requires_payment_method",
	}, nil
}

func (f *fakePaymentProvider) RetrieveIntent(_ context.Context, intentID string) (*PaymentIntent, error) {
	return &PaymentIntent{
		ID:            intentID,
		Status:        f.retrieveStatus,
		PaymentMethod: "card",
		CardLast4:     "4242",
		CardBrand:     "visa",
		ReceiptURL:    "https://pay.stripe.com/receipts/test",
	}, nil
}

func newTestOrdersService(db *gorm.DB, provider PaymentProvider) (*OrdersService, *CartService) {
	carts := NewCartService(db)
	email := NewEmailService("", 0, "", "", "noreply@test")
	return NewOrdersService(db, carts, provider, email), carts
}

func cartWithSubtotal(t *testing.T, db *gorm.DB, carts *CartService, unitPrice float64, quantity int) *models.Cart {
	t.Helper()

	item := createTestItem(t, db, unitPrice, 0)
	cart, err := carts.CreateCart(nil)
	require.NoError(t, err)
	cart, err = carts.AddToCart(cart.ID, item.ID, quantity)
	require.NoError(t, err)
	return cart
}

func TestCreatePaymentIntentRejectsEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{})

	cart, err := carts.CreateCart(nil)
	require.NoError(t, err)

	_, err = svc.CreatePaymentIntent(context.Background(), CreateOrderInput{CartID: cart.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreatePaymentIntentFreeShippingAndTax(t *testing.T) {
	db := newTestDB(t)
	provider := &fakePaymentProvider{}
	svc, carts := newTestOrdersService(db, provider)

	// 3 x $40 = $120: over the free shipping threshold.
	cart := cartWithSubtotal(t, db, carts, 40, 3)

	result, err := svc.CreatePaymentIntent(context.Background(), CreateOrderInput{
		CartID:       cart.ID,
		IsGuestOrder: true,
		GuestInfo:    &GuestInfo{Name: "Guest", Email: "guest@test"},
		ShippingAddress: Address{
			Address: "1 Main St", City: "Springfield", State: "IL",
			Country: "US", PostalCode: "62701",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 120.0, result.Details.Subtotal)
	assert.Equal(t, 0.0, result.Details.ShippingCost)
	assert.Equal(t, 10.20, result.Details.Tax)
	assert.InDelta(t, 130.20, result.Details.Total, 0.001)
	assert.Equal(t, "pi_test_123", result.PaymentIntentID)
	assert.Equal(t, "pi_test_123_secret", result.ClientSecret)

	require.Len(t, provider.created, 1)
	params := provider.created[0]
	assert.Equal(t, int64(13020), params.AmountCents)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, cart.ID.String(), params.Metadata["cartId"])
	assert.Equal(t, "true", params.Metadata["isGuestOrder"])
	assert.Equal(t, "guest", params.Metadata["userId"])
	assert.Equal(t, "guest@test", params.ReceiptEmail)
	require.NotNil(t, params.Shipping)
	assert.Equal(t, "1 Main St", params.Shipping.Line1)
}

func TestCreatePaymentIntentFlatShippingUnderThreshold(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{})

	// 1 x $40: flat rate shipping, tax applies to goods plus shipping.
	cart := cartWithSubtotal(t, db, carts, 40, 1)
	userID := uuid.New()

	result, err := svc.CreatePaymentIntent(context.Background(), CreateOrderInput{
		CartID: cart.ID,
		UserID: &userID,
	})
	require.NoError(t, err)

	assert.Equal(t, 40.0, result.Details.Subtotal)
	assert.Equal(t, 5.99, result.Details.ShippingCost)
	assert.Equal(t, 3.91, result.Details.Tax)
	assert.InDelta(t, 49.90, result.Details.Total, 0.001)
	assert.False(t, result.Details.IsGuestOrder)

	// Without an explicit billing address the shipping address is reused.
	assert.Equal(t, result.Details.ShippingAddress, result.Details.BillingAddress)
}

func TestConfirmOrderRejectsUnpaidIntent(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: "requires_payment_method"})

	cart := cartWithSubtotal(t, db, carts, 40, 1)

	_, err := svc.ConfirmOrder(context.Background(), "pi_test_123", OrderDetails{CartID: cart.ID})
	assert.ErrorIs(t, err, ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "no order row may exist before payment succeeds")
}

func TestConfirmOrderCreatesOrderAndClearsCart(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	cart := cartWithSubtotal(t, db, carts, 20, 2)

	order, err := svc.ConfirmOrder(context.Background(), "pi_test_123", OrderDetails{
		CartID:       cart.ID,
		IsGuestOrder: true,
		GuestInfo:    &GuestInfo{Name: "Guest", Email: "guest@test"},
		ShippingAddress: Address{
			Address: "1 Main St", City: "Springfield", State: "IL",
			Country: "US", PostalCode: "62701",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, "pi_test_123", order.StripePaymentIntentID)
	assert.Equal(t, 40.0, order.Subtotal)
	assert.Equal(t, 5.99, order.ShippingCost)
	assert.True(t, order.IsGuestOrder)
	assert.Contains(t, order.GuestUserInfo, "guest@test")
	assert.Contains(t, order.ShippingAddress, "Springfield")

	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 20.0, order.Items[0].Price)

	require.Len(t, order.Payments, 1)
	payment := order.Payments[0]
	assert.Equal(t, IntentSucceeded, payment.Status)
	assert.Equal(t, "4242", payment.Last4)
	assert.Equal(t, "visa", payment.Brand)
	assert.Equal(t, order.Total, payment.Amount)

	cleared, err := carts.GetCartByID(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
}

func TestConfirmOrderRejectsEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	cart, err := carts.CreateCart(nil)
	require.NoError(t, err)

	_, err = svc.ConfirmOrder(context.Background(), "pi_test_123", OrderDetails{CartID: cart.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func confirmTestOrder(t *testing.T, svc *OrdersService, carts *CartService, db *gorm.DB, userID *uuid.UUID) *models.Order {
	t.Helper()

	cart := cartWithSubtotal(t, db, carts, 30, 1)
	details := OrderDetails{
		CartID: cart.ID,
		UserID: userID,
		ShippingAddress: Address{
			Address: "1 Main St", City: "Springfield", State: "IL",
			Country: "US", PostalCode: "62701",
		},
	}
	if userID == nil {
		details.IsGuestOrder = true
		details.GuestInfo = &GuestInfo{Name: "Guest", Email: "guest@test"}
	}

	order, err := svc.ConfirmOrder(context.Background(), "pi_"+uuid.NewString(), details)
	require.NoError(t, err)
	return order
}

func TestGetOrderOwnership(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	owner := uuid.New()
	other := uuid.New()
	order := confirmTestOrder(t, svc, carts, db, &owner)

	_, err := svc.GetOrderByID(order.ID, &owner)
	assert.NoError(t, err)

	_, err = svc.GetOrderByID(order.ID, &other)
	assert.ErrorIs(t, err, ErrForbidden)

	// Owned orders are hidden from anonymous callers too.
	_, err = svc.GetOrderByID(order.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrderByID(uuid.New(), &owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserOrdersPaginated(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	userID := uuid.New()
	confirmTestOrder(t, svc, carts, db, &userID)
	confirmTestOrder(t, svc, carts, db, &userID)
	confirmTestOrder(t, svc, carts, db, &userID)

	orders, total, err := svc.GetUserOrders(userID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)

	rest, _, err := svc.GetUserOrders(userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestGuestOrderLookup(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	order := confirmTestOrder(t, svc, carts, db, nil)

	found, err := svc.GetGuestOrder(order.ID, "guest@test")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = svc.GetGuestOrder(order.ID, "someone-else@test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGuestOrderLookupTreatsWildcardsLiterally(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	order := confirmTestOrder(t, svc, carts, db, nil)

	// "%" and "_" are data, not patterns: neither a bare wildcard nor a
	// single-character one may match guest@test.
	_, err := svc.GetGuestOrder(order.ID, "%")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetGuestOrder(order.ID, "g_est@test")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetGuestOrder(order.ID, "guest@test")
	assert.NoError(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain@test", escapeLike("plain@test"))
}

func TestCancelOrder(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	order := confirmTestOrder(t, svc, carts, db, nil)

	cancelled, err := svc.CancelOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}

func TestCancelDeliveredOrderFails(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	order := confirmTestOrder(t, svc, carts, db, nil)
	_, err := svc.UpdateOrderStatus(order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = svc.CancelOrder(order.ID)
	assert.ErrorIs(t, err, ErrValidation)

	status, err := svc.GetOrderStatus(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, status)
}

func TestPaymentHistoryOwnership(t *testing.T) {
	db := newTestDB(t)
	svc, carts := newTestOrdersService(db, &fakePaymentProvider{retrieveStatus: IntentSucceeded})

	owner := uuid.New()
	other := uuid.New()
	owned := confirmTestOrder(t, svc, carts, db, &owner)
	guest := confirmTestOrder(t, svc, carts, db, nil)

	payments, err := svc.GetPaymentHistory(owned.ID, &owner)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	_, err = svc.GetPaymentHistory(owned.ID, &other)
	assert.ErrorIs(t, err, ErrForbidden)

	// Guest orders are open to anonymous callers but closed to
	// authenticated ones.
	_, err = svc.GetPaymentHistory(guest.ID, nil)
	assert.NoError(t, err)
	_, err = svc.GetPaymentHistory(guest.ID, &owner)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestShippingAndTaxMath(t *testing.T) {
	assert.Equal(t, 0.0, shippingCost(50))
	assert.Equal(t, 0.0, shippingCost(120))
	assert.Equal(t, 5.99, shippingCost(49.99))

	assert.Equal(t, 8.5, taxOn(100))
	assert.Equal(t, 3.91, taxOn(45.99))
	assert.Equal(t, 0.0, taxOn(0))
}
