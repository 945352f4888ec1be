package services

import (
	"encoding/json"
	"errors"

	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"gorm.io/gorm"
)

// RecordView is the API shape of a generation record, with the stored
// sample-image JSON decoded back into structured descriptors.
type RecordView struct {
	ID             uint64               `json:"id"`
	UserID         uint64               `json:"user_id"`
	CreatedAt      string               `json:"created_at"`
	Prompt         string               `json:"prompt"`
	NegativePrompt string               `json:"negative_prompt"`
	AspectRatio    string               `json:"aspect_ratio"`
	Resolution     string               `json:"resolution"`
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	NumImages      int                  `json:"num_images"`
	Seed           int64                `json:"seed"`
	Steps          int                  `json:"steps"`
	SampleImages   []models.SampleImage `json:"sample_images"`
	ImagePath      string               `json:"image_path"`
	Filename       string               `json:"filename"`
	BatchID        string               `json:"batch_id,omitempty"`
	Status         string               `json:"status"`
}

// createdAtLayout matches the second-precision wall-clock timestamps the
// records UI expects.
const createdAtLayout = "2006-01-02 15:04:05"

func toRecordView(rec *models.GenerationRecord) RecordView {
	view := RecordView{
		ID:             rec.ID,
		UserID:         rec.UserID,
		CreatedAt:      rec.CreatedAt.Format(createdAtLayout),
		Prompt:         rec.Prompt,
		NegativePrompt: rec.NegativePrompt,
		AspectRatio:    rec.AspectRatio,
		Resolution:     rec.Resolution,
		Width:          rec.Width,
		Height:         rec.Height,
		NumImages:      rec.NumImages,
		Seed:           rec.Seed,
		Steps:          rec.Steps,
		SampleImages:   []models.SampleImage{},
		ImagePath:      rec.ImagePath,
		Filename:       rec.Filename,
		BatchID:        rec.BatchID,
		Status:         rec.Status,
	}
	if len(rec.SampleImages.JSON) > 0 {
		// A corrupt blob yields the empty list rather than failing the read.
		_ = json.Unmarshal(rec.SampleImages.JSON, &view.SampleImages)
	}
	return view
}

// SaveGenerationRecord persists one generation attempt. The insert is
// idempotent on (user, image path): a retried client request that would
// duplicate an existing row returns the existing id and writes nothing.
// The check and insert run inside one transaction, and the table carries a
// unique composite index on (user_id, image_path) as a second line of
// defense against concurrent duplicates.
func SaveGenerationRecord(db *gorm.DB, rec *models.GenerationRecord) (uint64, error) {
	if rec.Prompt == "" {
		return 0, &types.ValidationError{Field: "prompt", Reason: "required"}
	}
	if rec.ImagePath == "" {
		return 0, &types.ValidationError{Field: "image_path", Reason: "required"}
	}
	if rec.Filename == "" {
		return 0, &types.ValidationError{Field: "filename", Reason: "required"}
	}
	if rec.UserID == 0 {
		return 0, &types.ValidationError{Field: "user_id", Reason: "required"}
	}
	if rec.Status == "" {
		rec.Status = "success"
	}

	var id uint64
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.GenerationRecord
		err := tx.Select("id").
			Where("user_id = ? AND image_path = ?", rec.UserID, rec.ImagePath).
			First(&existing).Error
		if err == nil {
			// Dedup path: same output already recorded for this user.
			id = existing.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		id = rec.ID
		return nil
	})
	if err != nil {
		// A concurrent writer can commit the same (user, image path) between
		// the existence check and the insert. The unique index rejects our
		// insert then, with a dialect-specific error (duplicate key on MySQL,
		// a busy snapshot on sqlite), so re-check on a fresh connection
		// rather than matching error codes. Finding the row means this was a
		// duplicate, which is the dedup path, not a storage failure.
		var existing models.GenerationRecord
		lookupErr := db.Select("id").
			Where("user_id = ? AND image_path = ?", rec.UserID, rec.ImagePath).
			First(&existing).Error
		if lookupErr == nil {
			return existing.ID, nil
		}
		return 0, &types.StorageError{Op: "SaveGenerationRecord", Err: err}
	}
	return id, nil
}

// GetRecords returns one user's records, most recent first, paginated.
// A non-empty search term filters on prompt substring. A user with no
// records gets an empty slice, not an error.
func GetRecords(db *gorm.DB, userID uint64, search string, limit, offset int) ([]RecordView, error) {
	query := db.Where("user_id = ?", userID)
	if search != "" {
		query = query.Where("prompt LIKE ?", "%"+search+"%")
	}

	var recs []models.GenerationRecord
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, &types.StorageError{Op: "GetRecords", Err: err}
	}

	views := make([]RecordView, 0, len(recs))
	for i := range recs {
		views = append(views, toRecordView(&recs[i]))
	}
	return views, nil
}

// GetRecordsByBatch returns all records sharing a batch id, most recent
// first. The store does not scope this by user; batches span one user in
// practice but that is the caller's concern.
func GetRecordsByBatch(db *gorm.DB, batchID string) ([]RecordView, error) {
	var recs []models.GenerationRecord
	err := db.Where("batch_id = ?", batchID).
		Order("created_at DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, &types.StorageError{Op: "GetRecordsByBatch", Err: err}
	}

	views := make([]RecordView, 0, len(recs))
	for i := range recs {
		views = append(views, toRecordView(&recs[i]))
	}
	return views, nil
}

// GetRecordByID returns a single record or NotFoundError.
func GetRecordByID(db *gorm.DB, recordID uint64) (RecordView, error) {
	var rec models.GenerationRecord
	err := db.First(&rec, recordID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RecordView{}, &types.NotFoundError{Resource: "record"}
		}
		return RecordView{}, &types.StorageError{Op: "GetRecordByID", Err: err}
	}
	return toRecordView(&rec), nil
}

// DeleteRecord removes a record by id. Deleting a nonexistent id is a no-op.
// The referenced image file is not touched.
func DeleteRecord(db *gorm.DB, recordID uint64) error {
	if err := db.Delete(&models.GenerationRecord{}, recordID).Error; err != nil {
		return &types.StorageError{Op: "DeleteRecord", Err: err}
	}
	return nil
}

// CountRecords returns the total record count for one user, with the same
// prompt filter semantics as GetRecords.
func CountRecords(db *gorm.DB, userID uint64, search string) (int64, error) {
	query := db.Model(&models.GenerationRecord{}).Where("user_id = ?", userID)
	if search != "" {
		query = query.Where("prompt LIKE ?", "%"+search+"%")
	}

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, &types.StorageError{Op: "CountRecords", Err: err}
	}
	return count, nil
}

// EncodeSampleImages marshals sample-image descriptors for storage in the
// record's JSON column.
func EncodeSampleImages(samples []models.SampleImage) (models.JSON, error) {
	if samples == nil {
		samples = []models.SampleImage{}
	}
	raw, err := json.Marshal(samples)
	if err != nil {
		return models.JSON{}, err
	}
	var j models.JSON
	if err := j.Scan(raw); err != nil {
		return models.JSON{}, err
	}
	return j, nil
}
