package services

import (
	"encoding/json"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"gorm.io/gorm"
)

// Library asset categories.
const (
	CategoryPerson = "person"
	CategoryScene  = "scene"
)

// AssetView is the API shape of a library asset with metadata decoded.
type AssetView struct {
	ID        uint64                 `json:"id"`
	UserID    uint64                 `json:"user_id"`
	CreatedAt string                 `json:"created_at"`
	Filename  string                 `json:"filename"`
	URL       string                 `json:"url"`
	Meta      map[string]interface{} `json:"meta"`
}

func validCategory(category string) bool {
	return category == CategoryPerson || category == CategoryScene
}

// SaveAsset promotes an image into a user's person or scene library and
// returns the new asset id. Duplicates per (user, filename) are allowed.
// Metadata values must be JSON primitives; nested structures are rejected
// at this boundary.
func SaveAsset(db *gorm.DB, userID uint64, category, filename, url string, meta map[string]interface{}) (uint64, error) {
	if !validCategory(category) {
		return 0, &types.ValidationError{Field: "category", Reason: "must be person or scene"}
	}
	if userID == 0 {
		return 0, &types.ValidationError{Field: "user_id", Reason: "required"}
	}
	if filename == "" {
		return 0, &types.ValidationError{Field: "filename", Reason: "required"}
	}
	if url == "" {
		return 0, &types.ValidationError{Field: "url", Reason: "required"}
	}
	for key, value := range meta {
		switch value.(type) {
		case nil, bool, string, float64, int, int64:
		default:
			return 0, &types.ValidationError{Field: "meta." + key, Reason: "must be a primitive value"}
		}
	}

	encoded, err := encodeMeta(meta)
	if err != nil {
		return 0, &types.ValidationError{Field: "meta", Reason: err.Error()}
	}

	if category == CategoryPerson {
		asset := models.PersonAsset{UserID: userID, Filename: filename, URL: url, Meta: encoded}
		if err := db.Create(&asset).Error; err != nil {
			return 0, &types.StorageError{Op: "SaveAsset", Err: err}
		}
		return asset.ID, nil
	}

	asset := models.SceneAsset{UserID: userID, Filename: filename, URL: url, Meta: encoded}
	if err := db.Create(&asset).Error; err != nil {
		return 0, &types.StorageError{Op: "SaveAsset", Err: err}
	}
	return asset.ID, nil
}

// ListAssets returns one user's assets in a category, most recent first.
func ListAssets(db *gorm.DB, userID uint64, category string, limit int) ([]AssetView, error) {
	if !validCategory(category) {
		return nil, &types.ValidationError{Field: "category", Reason: "must be person or scene"}
	}

	views := []AssetView{}
	if category == CategoryPerson {
		var assets []models.PersonAsset
		err := db.Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&assets).Error
		if err != nil {
			return nil, &types.StorageError{Op: "ListAssets", Err: err}
		}
		for i := range assets {
			views = append(views, toAssetView(assets[i].ID, assets[i].UserID, assets[i].CreatedAt, assets[i].Filename, assets[i].URL, assets[i].Meta))
		}
		return views, nil
	}

	var assets []models.SceneAsset
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, &types.StorageError{Op: "ListAssets", Err: err}
	}
	for i := range assets {
		views = append(views, toAssetView(assets[i].ID, assets[i].UserID, assets[i].CreatedAt, assets[i].Filename, assets[i].URL, assets[i].Meta))
	}
	return views, nil
}

// DeleteAsset removes one of the user's assets by id. Deleting a nonexistent
// id, or an id owned by somebody else, is a no-op.
func DeleteAsset(db *gorm.DB, userID uint64, category string, assetID uint64) error {
	if !validCategory(category) {
		return &types.ValidationError{Field: "category", Reason: "must be person or scene"}
	}

	var err error
	if category == CategoryPerson {
		err = db.Where("user_id = ?", userID).Delete(&models.PersonAsset{}, assetID).Error
	} else {
		err = db.Where("user_id = ?", userID).Delete(&models.SceneAsset{}, assetID).Error
	}
	if err != nil {
		return &types.StorageError{Op: "DeleteAsset", Err: err}
	}
	return nil
}

func encodeMeta(meta map[string]interface{}) (models.JSON, error) {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return models.JSON{}, err
	}
	var j models.JSON
	if err := j.Scan(raw); err != nil {
		return models.JSON{}, err
	}
	return j, nil
}

func toAssetView(id, userID uint64, createdAt time.Time, filename, url string, meta models.JSON) AssetView {
	view := AssetView{
		ID:        id,
		UserID:    userID,
		CreatedAt: createdAt.Format(createdAtLayout),
		Filename:  filename,
		URL:       url,
		Meta:      map[string]interface{}{},
	}
	if len(meta.JSON) > 0 {
		_ = json.Unmarshal(meta.JSON, &view.Meta)
	}
	return view
}
