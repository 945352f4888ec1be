package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"gorm.io/gorm"
)

// StatsHandler handles usage statistics routes
type StatsHandler struct {
	DB *gorm.DB
}

// dayLayout is the date-only format accepted by the stats range filters.
const dayLayout = "2006-01-02"

// Overview handles GET /api/stats/overview
// @Summary Usage overview
// @Description Total users, total records, and records generated today and this week
// @Tags Stats
// @Produce json
// @Success 200 {object} services.OverviewStats
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /stats/overview [get]
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	stats, err := services.Overview(h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "statsOverview")
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// PerUser handles GET /api/stats/users
// @Summary Per-user statistics
// @Description Generation counts per user, optionally bounded by a date range
// @Tags Stats
// @Produce json
// @Param start query string false "Range start (YYYY-MM-DD)"
// @Param end query string false "Range end (YYYY-MM-DD, inclusive)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /stats/users [get]
func (h *StatsHandler) PerUser(c *fiber.Ctx) error {
	start, err := parseDay(c.Query("start"))
	if err != nil {
		return utils.ErrorResponse(c, "Invalid start date, expected YYYY-MM-DD", fiber.StatusBadRequest, "stats.validation.input")
	}
	end, err := parseDay(c.Query("end"))
	if err != nil {
		return utils.ErrorResponse(c, "Invalid end date, expected YYYY-MM-DD", fiber.StatusBadRequest, "stats.validation.input")
	}

	stats, err := services.PerUserStats(h.DB, start, end)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "statsUsers")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"users": stats})
}

// Daily handles GET /api/stats/daily
// @Summary Daily statistics
// @Description Per-day generation counts over a trailing window
// @Tags Stats
// @Produce json
// @Param days query int false "Window size in days (default 30)"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /stats/daily [get]
func (h *StatsHandler) Daily(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days <= 0 {
		days = 30
	}

	stats, err := services.DailyStats(h.DB, days)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "statsDaily")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"days": stats})
}

// parseDay parses an optional YYYY-MM-DD query value.
func parseDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dayLayout, value, time.Local)
	if err != nil {
		return nil, err
	}
	return &day, nil
}
