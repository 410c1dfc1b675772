package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/exclusive/internal/config"
	"github.com/example/exclusive/internal/utils"
)

const (
	userContextKey  = "currentUserID"
	tokenContextKey = "currentAccessToken"
)

// AuthMiddleware validates bearer tokens and loads the authenticated user
// into context. Requests without a valid token are rejected.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		userID, _, err := utils.ParseAccessToken(cfg.JWTSecret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(userContextKey, userID)
		c.Locals(tokenContextKey, token)
		return c.Next()
	}
}

// OptionalAuthMiddleware loads the user when a valid bearer token is present
// and lets the request through anonymously otherwise. Cart and order
// endpoints use it so guest checkout keeps working.
func OptionalAuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if userID, _, err := utils.ParseAccessToken(cfg.JWTSecret, token); err == nil {
				c.Locals(userContextKey, userID)
				c.Locals(tokenContextKey, token)
			}
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetCurrentAccessToken returns the raw bearer token for the request.
func GetCurrentAccessToken(c *fiber.Ctx) (string, bool) {
	if token, ok := c.Locals(tokenContextKey).(string); ok && token != "" {
		return token, true
	}
	return "", false
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}
