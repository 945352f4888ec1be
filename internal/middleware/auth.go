package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
)

// AuthUser validates the session token and stores the caller's identity in
// the request context. Tokens are accepted from the Authorization bearer
// header or the "session" cookie.
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			token = c.Cookies("session")
		}
		if token == "" {
			return utils.ErrorResponse(c, "Missing session token", fiber.StatusUnauthorized, "authentication")
		}

		claims, err := services.ParseToken(cfg, token)
		if err != nil {
			return utils.ErrorResponse(c, "Invalid or expired session", fiber.StatusUnauthorized, "authentication")
		}

		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)

		return c.Next()
	}
}

// RequireAdmin rejects authenticated callers other than the reserved admin
// account. Statistics and user management routes chain this after AuthUser.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if username, _ := c.Locals("username").(string); username != "admin" {
			return utils.ForbiddenResponse(c, "Admin access required")
		}
		return c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
