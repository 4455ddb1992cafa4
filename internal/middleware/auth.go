package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"cars24/server/internal/utils"
)

// TokenFromRequest resolves the bearer credential. The same rule serves the
// REST API and the websocket handshake: Authorization header first, then
// the token cookie, then the token query parameter (browser websocket
// clients cannot set headers).
func TokenFromRequest(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		if token, found := strings.CutPrefix(auth, "Bearer "); found {
			return token
		}
	}
	if token := c.Cookies("token"); token != "" {
		return token
	}
	return c.Query("token")
}

// AuthRequired validates the JWT credential and binds the user identity to
// the request context. Failure terminates the request before any handler
// runs.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized - No token provided",
			})
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized - Invalid token",
			})
		}

		c.Locals("userID", claims.UserID)
		return c.Next()
	}
}

// GetUserID gets user ID from context
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}
