package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"gorm.io/gorm"
)

// LibraryHandler handles person and scene asset library routes
type LibraryHandler struct {
	DB *gorm.DB
}

// SaveAsset handles POST /api/library/:category
// @Summary Save a library asset
// @Description Add an image to the caller's person or scene library
// @Tags Library
// @Accept json
// @Produce json
// @Param category path string true "Asset category (person or scene)"
// @Param body body object true "Asset descriptor"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /library/{category} [post]
func (h *LibraryHandler) SaveAsset(c *fiber.Ctx) error {
	category := c.Params("category")

	var body struct {
		Filename string                 `json:"filename"`
		URL      string                 `json:"url"`
		Meta     map[string]interface{} `json:"meta"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "library.validation.input")
	}

	id, err := services.SaveAsset(h.DB, currentUserID(c), category, body.Filename, body.URL, body.Meta)
	if err != nil {
		if types.IsValidation(err) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "library.validation.input")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "saveAsset")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// ListAssets handles GET /api/library/:category
// @Summary List library assets
// @Description List the caller's person or scene library, most recent first
// @Tags Library
// @Produce json
// @Param category path string true "Asset category (person or scene)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /library/{category} [get]
func (h *LibraryHandler) ListAssets(c *fiber.Ctx) error {
	category := c.Params("category")
	limit, _ := parsePagination(c)

	assets, err := services.ListAssets(h.DB, currentUserID(c), category, limit)
	if err != nil {
		if types.IsValidation(err) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "library.validation.input")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listAssets")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"assets": assets,
		"total":  len(assets),
	})
}

// DeleteAsset handles DELETE /api/library/:category/:id
// @Summary Delete a library asset
// @Description Remove an image from the caller's person or scene library
// @Tags Library
// @Produce json
// @Param category path string true "Asset category (person or scene)"
// @Param id path int true "Asset ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /library/{category}/{id} [delete]
func (h *LibraryHandler) DeleteAsset(c *fiber.Ctx) error {
	category := c.Params("category")
	assetID := parseID(c, "id")

	if err := services.DeleteAsset(h.DB, currentUserID(c), category, assetID); err != nil {
		if types.IsValidation(err) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "library.validation.input")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteAsset")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
