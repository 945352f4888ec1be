package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB opens an isolated in-memory database with the full schema.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.GenerationRecord{}, &models.PersonAsset{}, &models.SceneAsset{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateTestUser creates a user with the given password and returns it.
func CreateTestUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateTestRecord inserts a generation record with a unique image path
// derived from the prompt and creation time.
func CreateTestRecord(t *testing.T, db *gorm.DB, userID uint64, prompt string, createdAt time.Time) *models.GenerationRecord {
	t.Helper()
	filename := fmt.Sprintf("%s_%d.jpg", prompt, createdAt.UnixNano())
	rec := &models.GenerationRecord{
		UserID:    userID,
		CreatedAt: createdAt,
		Prompt:    prompt,
		Width:     2048,
		Height:    2048,
		NumImages: 1,
		Steps:     28,
		ImagePath: fmt.Sprintf("/output/%d/%s", userID, filename),
		Filename:  filename,
		Status:    "success",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	return rec
}
