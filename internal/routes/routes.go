package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/cache"
	"github.com/example/exclusive/internal/config"
	"github.com/example/exclusive/internal/handlers"
	"github.com/example/exclusive/internal/middleware"
	"github.com/example/exclusive/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, tokens *cache.TokenStore) {
	sessions := services.NewSessionService(tokens, cfg.JWTSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.RememberMeRefreshTTL)
	email := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort,
		cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	carts := services.NewCartService(db)
	payments := services.NewStripeService(cfg.StripeSecretKey)
	orders := services.NewOrdersService(db, carts, payments, email)

	authHandler := handlers.NewAuthHandler(db, cfg, sessions, email)
	cartHandler := handlers.NewCartHandler(carts)
	orderHandler := handlers.NewOrderHandler(orders)
	flashSaleHandler := handlers.NewFlashSaleHandler(db)

	requireAuth := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", requireAuth, authHandler.Logout)
	auth.Post("/send-verification", requireAuth, authHandler.SendVerification)
	auth.Post("/verify-email", requireAuth, authHandler.VerifyEmail)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/change-password", requireAuth, authHandler.ChangePassword)

	// Cart routes; guests operate on carts by id, so auth is optional on
	// everything except the user-cart lookup.
	cart := api.Group("/cart", optionalAuth)
	cart.Get("/", requireAuth, cartHandler.GetUserCart)
	cart.Post("/", cartHandler.CreateCart)
	cart.Post("/items", cartHandler.AddToCart)
	cart.Put("/items/:cartItemId", cartHandler.UpdateCartItem)
	cart.Delete("/items/:cartItemId", cartHandler.RemoveFromCart)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Post("/recover", cartHandler.RecoverCart)
	cart.Post("/cleanup", requireAuth, cartHandler.CleanupCarts)
	cart.Post("/:cartId/recalculate", cartHandler.RecalculateCart)
	cart.Get("/:cartId", cartHandler.GetCart)

	// Order routes
	orderGroup := api.Group("/orders", optionalAuth)
	orderGroup.Post("/", orderHandler.CreateOrder)
	orderGroup.Post("/confirm", orderHandler.ConfirmOrder)
	orderGroup.Get("/", requireAuth, orderHandler.ListOrders)
	orderGroup.Get("/guest/:id", orderHandler.GetGuestOrder)
	orderGroup.Get("/:id/status", orderHandler.GetOrderStatus)
	orderGroup.Put("/:id/status", requireAuth, orderHandler.UpdateOrderStatus)
	orderGroup.Post("/:id/cancel", requireAuth, orderHandler.CancelOrder)
	orderGroup.Get("/:id/payments", orderHandler.GetPaymentHistory)
	orderGroup.Get("/:id", orderHandler.GetOrder)

	// Flash sale routes
	flashSales := api.Group("/flash-sales")
	flashSales.Get("/active", flashSaleHandler.ListActive)
	flashSales.Post("/", requireAuth, flashSaleHandler.CreateFlashSale)
	flashSales.Post("/:id/items", requireAuth, flashSaleHandler.AddItem)
	flashSales.Delete("/items/:itemId", requireAuth, flashSaleHandler.RemoveItem)
	flashSales.Put("/:id", requireAuth, flashSaleHandler.UpdateFlashSale)
	flashSales.Delete("/:id", requireAuth, flashSaleHandler.DeleteFlashSale)
	flashSales.Get("/:id", flashSaleHandler.GetFlashSale)
}
