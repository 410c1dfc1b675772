package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/exclusive/internal/database"
	"github.com/example/exclusive/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestItem(t *testing.T, db *gorm.DB, listPrice, salePrice float64) models.Item {
	t.Helper()

	item := models.Item{
		Name: "Test Item",
		Slug: "test-item-" + uuid.NewString(),
	}
	require.NoError(t, db.Create(&item).Error)

	price := models.ItemPrice{
		ItemID:    item.ID,
		Price:     listPrice,
		SalePrice: salePrice,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&price).Error)

	item.Prices = []models.ItemPrice{price}
	return item
}

func TestAddToCartCapturesSalePrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 100, 80)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	cart, err = svc.AddToCart(cart.ID, item.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 80.0, cart.Items[0].Price)
}

func TestAddToCartFallsBackToListPrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	// No sale at all.
	noSale := createTestItem(t, db, 100, 0)
	cart, err = svc.AddToCart(cart.ID, noSale.ID, 1)
	require.NoError(t, err)

	// "Sale" price at or above the list price is ignored.
	badSale := createTestItem(t, db, 100, 120)
	cart, err = svc.AddToCart(cart.ID, badSale.ID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	for _, line := range cart.Items {
		assert.Equal(t, 100.0, line.Price)
	}
}

func TestAddToCartAccumulatesQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	_, err = svc.AddToCart(cart.ID, item.ID, 3)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 4)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
	assert.Equal(t, 7, cart.TotalItems())
}

func TestAddToCartRejectsQuantityOverCap(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	_, err = svc.AddToCart(cart.ID, item.ID, 11)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddToCart(cart.ID, item.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	// Accumulating past the cap fails and leaves the line untouched.
	_, err = svc.AddToCart(cart.ID, item.ID, 6)
	require.NoError(t, err)
	_, err = svc.AddToCart(cart.ID, item.ID, 5)
	assert.ErrorIs(t, err, ErrValidation)

	cart, err = svc.GetCartByID(cart.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 6, cart.Items[0].Quantity)
}

func TestAddToCartUnknownItem(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	_, err = svc.AddToCart(cart.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartSubtotal(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 40)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	cart, err = svc.AddToCart(cart.ID, item.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, 120.0, cart.Subtotal())
}

func TestUpdateCartItemZeroRemovesLine(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 2)
	require.NoError(t, err)

	cart, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestUpdateCartItemRecapturesPrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 100, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 100.0, cart.Items[0].Price)

	// The item goes on sale after the line was added.
	err = db.Model(&models.ItemPrice{}).
		Where("item_id = ?", item.ID).
		Update("sale_price", 70).Error
	require.NoError(t, err)

	cart, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 70.0, cart.Items[0].Price)
}

func TestUpdateCartItemRejectsQuantityOverCap(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 2)
	require.NoError(t, err)

	_, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, 11, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, -1, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCartOwnershipEnforcedAgainstOtherUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	owner := uuid.New()
	other := uuid.New()
	item := createTestItem(t, db, 50, 0)

	cart, err := svc.CreateCart(&owner)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, 2, &other)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ClearCart(cart.ID, &other)
	assert.ErrorIs(t, err, ErrForbidden)

	// The owner and anonymous callers both pass.
	_, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, 2, &owner)
	assert.NoError(t, err)
	_, err = svc.UpdateCartItem(cart.ID, cart.Items[0].ID, 3, nil)
	assert.NoError(t, err)
}

func TestGetUserCartCreatesOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	userID := uuid.New()

	first, err := svc.GetUserCart(userID)
	require.NoError(t, err)
	second, err := svc.GetUserCart(userID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.UserID)
	assert.Equal(t, userID, *second.UserID)
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 2)
	require.NoError(t, err)
	require.NotEmpty(t, cart.Items)

	cart, err = svc.ClearCart(cart.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.Subtotal())
}

func TestRecalculateCartPrices(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 100, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 1)
	require.NoError(t, err)

	err = db.Model(&models.ItemPrice{}).
		Where("item_id = ?", item.ID).
		Update("price", 90).Error
	require.NoError(t, err)

	// The captured snapshot does not move on its own.
	cart, err = svc.GetCartByID(cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cart.Items[0].Price)

	cart, err = svc.RecalculateCartPrices(cart.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 90.0, cart.Items[0].Price)
}

func TestRemoveFromCartRecoversStaleCartID(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 0)
	cart, err := svc.CreateCart(nil)
	require.NoError(t, err)
	cart, err = svc.AddToCart(cart.ID, item.ID, 1)
	require.NoError(t, err)

	// The client holds a cart id that no longer exists; the line's real cart
	// is found via the line itself.
	recovered, err := svc.RemoveFromCart(uuid.New(), cart.Items[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, recovered.ID)
	assert.Empty(t, recovered.Items)
}

func TestRecoverCartFallbackLookups(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	userID := uuid.New()

	_, ok, err := svc.FindUserRecentCart(userID)
	require.NoError(t, err)
	assert.False(t, ok)

	userCart, err := svc.CreateCart(&userID)
	require.NoError(t, err)
	guestCart, err := svc.CreateCart(nil)
	require.NoError(t, err)

	gotUser, ok, err := svc.FindUserRecentCart(userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, userCart.ID, gotUser)

	gotGuest, ok, err := svc.FindRecentGuestCart()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, guestCart.ID, gotGuest)
}

func TestCreateRecoveryCartMigratesLines(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	item := createTestItem(t, db, 50, 40)
	old, err := svc.CreateCart(nil)
	require.NoError(t, err)
	old, err = svc.AddToCart(old.ID, item.ID, 2)
	require.NoError(t, err)

	userID := uuid.New()
	newID, migrated, err := svc.CreateRecoveryCart(&userID, &old.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	fresh, err := svc.GetCartByID(newID)
	require.NoError(t, err)
	require.Len(t, fresh.Items, 1)
	assert.Equal(t, 2, fresh.Items[0].Quantity)
	assert.Equal(t, 40.0, fresh.Items[0].Price)
}

func TestCleanupOrphanedCarts(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	// Stale empty guest cart.
	stale, err := svc.CreateCart(nil)
	require.NoError(t, err)
	err = db.Model(&models.Cart{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error
	require.NoError(t, err)

	// Fresh guest cart with a line survives.
	item := createTestItem(t, db, 50, 0)
	kept, err := svc.CreateCart(nil)
	require.NoError(t, err)
	_, err = svc.AddToCart(kept.ID, item.ID, 1)
	require.NoError(t, err)

	// Line whose cart no longer exists.
	orphan := models.CartItem{CartID: uuid.New(), ItemID: item.ID, Quantity: 1, Price: 50}
	require.NoError(t, db.Create(&orphan).Error)

	deletedCarts, deletedItems, err := svc.CleanupOrphanedCarts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deletedCarts)
	assert.Equal(t, int64(1), deletedItems)

	_, err = svc.GetCartByID(stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	survivor, err := svc.GetCartByID(kept.ID)
	require.NoError(t, err)
	assert.Len(t, survivor.Items, 1)
}

func TestCartNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	_, err := svc.GetCartByID(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, fmt.Sprintf("%v", err), "cart")
}
