package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/progress"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
)

// GenerateHandler handles image generation routes
type GenerateHandler struct {
	Gen     *services.Generator
	Tracker *progress.Tracker
}

// generateBody is the request payload shared by single and batch generation.
type generateBody struct {
	Prompt         string                          `json:"prompt"`
	NegativePrompt string                          `json:"negative_prompt"`
	AspectRatio    string                          `json:"aspect_ratio"`
	Resolution     string                          `json:"resolution"`
	NumImages      types.FlexInt64                 `json:"num_images"`
	Steps          types.FlexInt64                 `json:"steps"`
	Seed           types.FlexInt64                 `json:"seed"`
	FilenameBase   string                          `json:"filename"`
	SampleImages   types.FlexList[sampleImageBody] `json:"sample_images"`
}

type sampleImageBody struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func (b *generateBody) toRequest() services.GenerateRequest {
	samples := make([]models.SampleImage, 0, len(b.SampleImages))
	for _, s := range b.SampleImages.Slice() {
		if s.URL == "" {
			continue
		}
		samples = append(samples, models.SampleImage{URL: s.URL, Filename: s.Filename})
	}
	return services.GenerateRequest{
		Prompt:         b.Prompt,
		NegativePrompt: b.NegativePrompt,
		AspectRatio:    b.AspectRatio,
		Resolution:     b.Resolution,
		NumImages:      b.NumImages.Int(),
		Steps:          b.Steps.Int(),
		Seed:           b.Seed.Int64(),
		FilenameBase:   b.FilenameBase,
		SampleImages:   samples,
	}
}

// Generate handles POST /api/generate
// @Summary Generate images
// @Description Run a synchronous generation request and return the produced images
// @Tags Generate
// @Accept json
// @Produce json
// @Param body body object true "Generation parameters"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /generate [post]
func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	var body generateBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "generate.validation.input")
	}

	images, err := h.Gen.Generate(c.Context(), currentUserID(c), body.toRequest())
	if err != nil {
		if types.IsValidation(err) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "generate.validation.input")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, "generate")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"images": images,
	})
}

// BatchGenerate handles POST /api/batch-generate
// @Summary Start a batch generation
// @Description Submit a generation batch; work proceeds in the background and progress is polled by batch id
// @Tags Generate
// @Accept json
// @Produce json
// @Param body body object true "Generation parameters"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /batch-generate [post]
func (h *GenerateHandler) BatchGenerate(c *fiber.Ctx) error {
	var body generateBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "generate.validation.input")
	}
	if body.Prompt == "" {
		return utils.ErrorResponse(c, "Prompt is required", fiber.StatusBadRequest, "generate.validation.input")
	}

	req := body.toRequest()
	if req.NumImages <= 0 {
		req.NumImages = 1
	}

	userID := currentUserID(c)
	batchID := uuid.NewString()
	if err := h.Tracker.Create(batchID, userID, currentUsername(c), req.NumImages); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "batchGenerate")
	}

	// The worker owns the batch from here; the request only reports the id.
	// The request context dies with this handler, so the worker gets its own.
	go h.Gen.RunBatch(context.Background(), h.Tracker, batchID, userID, req)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"batch_id": batchID,
		"total":    req.NumImages,
	})
}

// BatchProgress handles GET /api/batch-progress/:batch_id
// @Summary Poll batch progress
// @Description Return the live progress snapshot for one of the caller's batches
// @Tags Generate
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Success 200 {object} progress.Snapshot
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /batch-progress/{batch_id} [get]
func (h *GenerateHandler) BatchProgress(c *fiber.Ctx) error {
	batchID := c.Params("batch_id")

	snapshot, err := h.Tracker.Get(batchID, currentUserID(c))
	if err != nil {
		if types.IsForbidden(err) {
			return utils.ForbiddenResponse(c, "Batch belongs to another user")
		}
		return utils.NotFoundResponse(c, "Batch not found")
	}

	return c.Status(fiber.StatusOK).JSON(snapshot)
}
