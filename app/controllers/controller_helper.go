package controllers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// requestTimeout bounds the storage and provider work of a single request.
const requestTimeout = 15 * time.Second

var validate = validator.New()

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// bindJSON parses and validates the request body into dst. It writes the 400
// response itself and returns false when the body is unusable.
func bindJSON(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return false, jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	return true, nil
}

func firstHeaderValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func queryInt(c *fiber.Ctx, key string, def, min, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
