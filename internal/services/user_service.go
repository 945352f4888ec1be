package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrDuplicateUsername distinguishes a username collision from other
// storage failures.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords so callers cannot probe which usernames exist.
var ErrInvalidCredentials = errors.New("invalid username or password")

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 20 {
		return &types.ValidationError{Field: "username", Reason: "must be 3-20 characters"}
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return &types.ValidationError{Field: "username", Reason: "only letters, digits and underscore allowed"}
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return &types.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	return nil
}

// CreateUser creates an account and its per-user output and upload
// directories. Returns ErrDuplicateUsername on a username collision.
func CreateUser(db *gorm.DB, cfg *config.Config, username, password string) (uint64, error) {
	if err := validateUsername(username); err != nil {
		return 0, err
	}
	if err := validatePassword(password); err != nil {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	var existing models.User
	err = db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return 0, ErrDuplicateUsername
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &types.StorageError{Op: "CreateUser", Err: err}
	}

	user := models.User{Username: username, PasswordHash: string(hash)}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrDuplicateUsername
		}
		return 0, &types.StorageError{Op: "CreateUser", Err: err}
	}

	// Per-user working directories. Failure here is not fatal: the server
	// creates them lazily on first generation as well.
	userID := fmt.Sprintf("%d", user.ID)
	_ = os.MkdirAll(filepath.Join(cfg.OutputDir, userID), 0o755)
	_ = os.MkdirAll(filepath.Join(cfg.UploadDir, userID), 0o755)

	return user.ID, nil
}

// Authenticate checks credentials and updates last_login on success.
func Authenticate(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, &types.StorageError{Op: "Authenticate", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, &types.StorageError{Op: "Authenticate", Err: err}
	}
	user.LastLogin = &now
	return &user, nil
}

// ChangePassword replaces a user's password hash.
func ChangePassword(db *gorm.DB, username, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &types.NotFoundError{Resource: "user", ID: username}
		}
		return &types.StorageError{Op: "ChangePassword", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		return &types.StorageError{Op: "ChangePassword", Err: err}
	}
	return nil
}

// DeleteUser removes an account and its generation records. Files on disk
// and in object storage are deliberately left for out-of-band cleanup.
// Returns the number of records deleted alongside the user.
func DeleteUser(db *gorm.DB, username string) (int64, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &types.NotFoundError{Resource: "user", ID: username}
		}
		return 0, &types.StorageError{Op: "DeleteUser", Err: err}
	}

	var recordsDeleted int64
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ?", user.ID).Delete(&models.GenerationRecord{})
		if result.Error != nil {
			return result.Error
		}
		recordsDeleted = result.RowsAffected

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PersonAsset{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.SceneAsset{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return 0, &types.StorageError{Op: "DeleteUser", Err: err}
	}
	return recordsDeleted, nil
}

// ListUsers returns all users ordered by id.
func ListUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, &types.StorageError{Op: "ListUsers", Err: err}
	}
	return users, nil
}
