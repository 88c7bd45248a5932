package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"medpipe_backend/models"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrUnsupportedLanguage):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
