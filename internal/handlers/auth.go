package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles login and session routes
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Login handles POST /api/login
// @Summary Log in
// @Description Exchange username and password for a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body object true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "auth.validation.input")
	}
	if body.Username == "" || body.Password == "" {
		return utils.ErrorResponse(c, "Username and password are required", fiber.StatusBadRequest, "auth.validation.input")
	}

	user, err := services.Authenticate(h.DB, body.Username, body.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return utils.ErrorResponse(c, "Invalid username or password", fiber.StatusUnauthorized, "authentication")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "login")
	}

	token, err := services.IssueToken(h.Cfg, user.ID, user.Username)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "login")
	}

	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    token,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   int(h.Cfg.TokenTTL.Seconds()),
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

// Me handles GET /api/me
// @Summary Current user
// @Description Return the authenticated caller's identity
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":       currentUserID(c),
		"username": currentUsername(c),
	})
}
