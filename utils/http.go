// utils/http.go - HTTP utility functions for fiber handlers
package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// JSONError sends a JSON error response
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// JSONSuccess sends a 200 response with success=true merged into data
func JSONSuccess(c *fiber.Ctx, data fiber.Map) error {
	return JSONStatus(c, fiber.StatusOK, data)
}

// JSONStatus sends success=true merged into data with the given status
func JSONStatus(c *fiber.Ctx, status int, data fiber.Map) error {
	response := fiber.Map{"success": true}
	for k, v := range data {
		response[k] = v
	}
	return c.Status(status).JSON(response)
}

// ParamID parses a positive numeric route parameter.
func ParamID(c *fiber.Ctx, key string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(key), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// QueryInt gets an integer query parameter or the default
func QueryInt(c *fiber.Ctx, key string, defaultValue int) int {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}
