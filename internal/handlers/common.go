package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// currentUserID returns the authenticated caller's id from the request
// context. Zero means the auth middleware did not run.
func currentUserID(c *fiber.Ctx) uint64 {
	if id, ok := c.Locals("userID").(uint64); ok {
		return id
	}
	return 0
}

// currentUsername returns the authenticated caller's username.
func currentUsername(c *fiber.Ctx) string {
	if name, ok := c.Locals("username").(string); ok {
		return name
	}
	return ""
}

// parsePagination extracts limit and offset query parameters, clamping
// them to sane bounds.
func parsePagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseID parses a numeric path parameter, returning 0 when invalid.
func parseID(c *fiber.Ctx, name string) uint64 {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
