package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
)

func disabledStore(t *testing.T) *storage.ObjectStorage {
	t.Helper()
	store, err := storage.New(context.Background(), &config.Config{OSSEnabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create disabled store: %v", err)
	}
	return store
}

func TestListSampleImagesDisabledStorage(t *testing.T) {
	store := disabledStore(t)

	samples, err := services.ListSampleImages(context.Background(), store)
	if err != nil {
		t.Fatalf("Expected no error with disabled storage, got %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("Expected no samples, got %d", len(samples))
	}
}

func TestUploadSampleRejectsNonImages(t *testing.T) {
	store := disabledStore(t)

	_, err := services.UploadSample(context.Background(), store, "notes.txt", strings.NewReader("hello"))
	if !types.IsValidation(err) {
		t.Errorf("Expected ValidationError for non-image filename, got %v", err)
	}

	_, err = services.UploadDated(context.Background(), store, "archive.zip", strings.NewReader("hello"))
	if !types.IsValidation(err) {
		t.Errorf("Expected ValidationError for non-image filename, got %v", err)
	}
}

func TestUploadSampleDisabledStorageErrors(t *testing.T) {
	store := disabledStore(t)

	// A valid image name still fails when no storage is configured.
	if _, err := services.UploadSample(context.Background(), store, "cat.jpg", strings.NewReader("img")); err == nil {
		t.Error("Expected error uploading with disabled storage")
	}
}
