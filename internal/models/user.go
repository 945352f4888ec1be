package models

import (
	"time"
)

// User represents an account that can generate and organize images.
// Users are created by the userctl administration tool, not self-service.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	CreatedAt    time.Time
	LastLogin    *time.Time
	Records      []GenerationRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
