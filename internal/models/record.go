package models

import "time"

// GenerationRecord logs one generation attempt that produced exactly one
// output image. Records are append-only: they are never updated after insert.
type GenerationRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	UserID         uint64    `gorm:"not null;index:idx_user_created;index:idx_user_image,unique"`
	CreatedAt      time.Time `gorm:"index:idx_user_created"`
	Prompt         string    `gorm:"type:text;not null"`
	NegativePrompt string    `gorm:"type:text"`
	AspectRatio    string    `gorm:"size:16"`
	Resolution     string    `gorm:"size:16"`
	Width          int
	Height         int
	NumImages      int
	Seed           int64
	Steps          int
	SampleImages   JSON   `gorm:"type:json"`
	ImagePath      string `gorm:"size:512;not null;index:idx_user_image,unique"`
	Filename       string `gorm:"size:255;not null"`
	BatchID        string `gorm:"size:64;index:idx_batch_id"`
	Status         string `gorm:"size:32;default:success"`
}

// TableName overrides the table name for GenerationRecord
func (GenerationRecord) TableName() string {
	return "generation_records"
}

// SampleImage describes one reference image passed to the generation provider.
type SampleImage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
