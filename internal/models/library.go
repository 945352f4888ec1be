package models

import "time"

// PersonAsset is a user-curated reference image in the "person" collection.
// Duplicates per (user, filename) are allowed; de-duplication is up to callers.
type PersonAsset struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;index"`
	CreatedAt time.Time
	Filename  string `gorm:"size:255;not null"`
	URL       string `gorm:"size:512;not null"`
	Meta      JSON   `gorm:"type:json"`
}

// SceneAsset is a user-curated reference image in the "scene" collection.
// Identical shape to PersonAsset, stored in its own table.
type SceneAsset struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;index"`
	CreatedAt time.Time
	Filename  string `gorm:"size:255;not null"`
	URL       string `gorm:"size:512;not null"`
	Meta      JSON   `gorm:"type:json"`
}

// TableName overrides the table name for PersonAsset
func (PersonAsset) TableName() string {
	return "person_library"
}

// TableName overrides the table name for SceneAsset
func (SceneAsset) TableName() string {
	return "scene_library"
}
