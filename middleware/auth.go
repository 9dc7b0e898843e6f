// middleware/auth.go
package middleware

import (
	"strings"

	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// Auth requires a valid Bearer token and stores the caller in Locals.
func Auth(signer *utils.TokenSigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Missing authorization header")
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Invalid authorization header format")
		}

		claims, err := signer.Parse(tokenString)
		if err != nil {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

// WebSocketAuth authenticates an upgrade request. Browsers cannot set headers
// on a WebSocket handshake, so the token may also come from ?token=.
func WebSocketAuth(signer *utils.TokenSigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Query("token")
		if tokenString == "" {
			tokenString, _ = bearerToken(c.Get("Authorization"))
		}
		if tokenString == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Missing token")
		}

		claims, err := signer.Parse(tokenString)
		if err != nil {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *fiber.Ctx, claims *utils.Claims) {
	c.Locals("userId", claims.UserID)
	c.Locals("userName", claims.Name)
}

func GetUserID(c *fiber.Ctx) (uint, error) {
	userID := c.Locals("userId")
	if userID == nil {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	if id, ok := userID.(uint); ok && id > 0 {
		return id, nil
	}

	if id, ok := userID.(float64); ok && id > 0 {
		return uint(id), nil
	}

	return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID format")
}

func GetUserName(c *fiber.Ctx) string {
	name, _ := c.Locals("userName").(string)
	return name
}
