package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"gorm.io/gorm"
)

// RecordsHandler handles generation history routes
type RecordsHandler struct {
	DB *gorm.DB
}

// ListRecords handles GET /api/records
// @Summary List generation records
// @Description List the caller's generation history, most recent first
// @Tags Records
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Page offset"
// @Param search query string false "Prompt substring filter"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /records [get]
func (h *RecordsHandler) ListRecords(c *fiber.Ctx) error {
	userID := currentUserID(c)
	limit, offset := parsePagination(c)
	search := c.Query("search")

	records, err := services.GetRecords(h.DB, userID, search, limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listRecords")
	}
	total, err := services.CountRecords(h.DB, userID, search)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listRecords")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetRecord handles GET /api/records/:id
// @Summary Get one record
// @Description Get one of the caller's generation records by id
// @Tags Records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} services.RecordView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /records/{id} [get]
func (h *RecordsHandler) GetRecord(c *fiber.Ctx) error {
	recordID := parseID(c, "id")
	if recordID == 0 {
		return utils.NotFoundResponse(c, "Record not found")
	}

	record, err := services.GetRecordByID(h.DB, recordID)
	if err != nil {
		return utils.NotFoundResponse(c, "Record not found")
	}
	if record.UserID != currentUserID(c) {
		return utils.ForbiddenResponse(c, "Record belongs to another user")
	}

	return c.Status(fiber.StatusOK).JSON(record)
}

// DeleteRecord handles DELETE /api/records/:id
// @Summary Delete a record
// @Description Delete one of the caller's generation records; the image file is not removed
// @Tags Records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /records/{id} [delete]
func (h *RecordsHandler) DeleteRecord(c *fiber.Ctx) error {
	recordID := parseID(c, "id")
	if recordID == 0 {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}

	record, err := services.GetRecordByID(h.DB, recordID)
	if err != nil {
		// Deleting a record that is already gone succeeds.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
	if record.UserID != currentUserID(c) {
		return utils.ForbiddenResponse(c, "Record belongs to another user")
	}

	if err := services.DeleteRecord(h.DB, recordID); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteRecord")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// GetBatchRecords handles GET /api/records/batch/:batch_id
// @Summary List records for a batch
// @Description List the records produced by one of the caller's batches
// @Tags Records
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /records/batch/{batch_id} [get]
func (h *RecordsHandler) GetBatchRecords(c *fiber.Ctx) error {
	batchID := c.Params("batch_id")

	records, err := services.GetRecordsByBatch(h.DB, batchID)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getBatchRecords")
	}

	// Batch ids are unguessable, but ownership is still enforced.
	userID := currentUserID(c)
	owned := make([]services.RecordView, 0, len(records))
	for _, r := range records {
		if r.UserID == userID {
			owned = append(owned, r)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"records": owned,
		"total":   len(owned),
	})
}
