package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
)

// apiVersion is the current (and only) major version of the HTTP API.
const apiVersion = "1"

// VersionMiddleware negotiates the API version. Clients may pin a version
// with the X-Api-Version header; anything outside v1 is rejected, and every
// response echoes the version that served it.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requested := c.Get("X-Api-Version", apiVersion)

		// "1", "1.0", "1.0.0" all pin to v1.
		if requested != apiVersion && !strings.HasPrefix(requested, apiVersion+".") {
			return utils.ErrorResponse(c,
				fmt.Sprintf("Unsupported API version %q, this server serves v%s", requested, apiVersion),
				fiber.StatusBadRequest, "version")
		}

		c.Set("X-Api-Version", apiVersion)
		return c.Next()
	}
}
