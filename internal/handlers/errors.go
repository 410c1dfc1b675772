package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/exclusive/internal/services"
)

// serviceError maps service sentinels onto HTTP statuses. Anything
// unrecognized bubbles up as a 500 through fiber's default error handler.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
