package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"gorm.io/gorm"
)

// SamplesHandler handles sample image listing and reference uploads
type SamplesHandler struct {
	DB    *gorm.DB
	Store *storage.ObjectStorage
}

// ListSampleImages handles GET /api/sample-images
// @Summary List sample images
// @Description Shared sample images from object storage merged with the caller's library entries, de-duplicated by URL
// @Tags Samples
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /sample-images [get]
func (h *SamplesHandler) ListSampleImages(c *fiber.Ctx) error {
	samples, err := services.ListSampleImages(c.Context(), h.Store)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listSampleImages")
	}

	seen := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		seen[s.URL] = struct{}{}
	}

	userID := currentUserID(c)
	for _, category := range []string{services.CategoryPerson, services.CategoryScene} {
		assets, err := services.ListAssets(h.DB, userID, category, maxPageLimit)
		if err != nil {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listSampleImages")
		}
		for _, a := range assets {
			if _, ok := seen[a.URL]; ok {
				continue
			}
			seen[a.URL] = struct{}{}
			samples = append(samples, models.SampleImage{URL: a.URL, Filename: a.Filename})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"images": samples,
		"total":  len(samples),
	})
}

// Upload handles POST /api/upload
// @Summary Upload a reference image
// @Description Store an uploaded image under the date-partitioned prefix and return its public URL
// @Tags Samples
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /upload [post]
func (h *SamplesHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, "Missing file", fiber.StatusBadRequest, "upload.validation.input")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, "Unreadable file", fiber.StatusBadRequest, "upload.validation.input")
	}
	defer file.Close()

	url, err := services.UploadDated(c.Context(), h.Store, fileHeader.Filename, file)
	if err != nil {
		if types.IsValidation(err) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "upload.validation.input")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, "upload")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url":      url,
		"filename": fileHeader.Filename,
	})
}
