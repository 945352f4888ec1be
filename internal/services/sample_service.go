package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
)

// samplePrefix is the fixed object-storage prefix for shared sample images.
const samplePrefix = "ai-images/sample/"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// isImageKey reports whether an object key looks like an image file.
func isImageKey(key string) bool {
	return imageExtensions[strings.ToLower(path.Ext(key))]
}

// contentTypeFor maps an image filename to its MIME type.
func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ListSampleImages returns the shared sample images stored under the
// sample prefix, newest keys last. Non-image objects are skipped.
func ListSampleImages(ctx context.Context, store *storage.ObjectStorage) ([]models.SampleImage, error) {
	objects, err := store.List(ctx, samplePrefix)
	if err != nil {
		return nil, err
	}
	samples := []models.SampleImage{}
	for _, obj := range objects {
		if !isImageKey(obj.Key) {
			continue
		}
		samples = append(samples, models.SampleImage{
			URL:      store.PublicURL(obj.Key),
			Filename: path.Base(obj.Key),
		})
	}
	return samples, nil
}

// UploadSample stores an image under the shared sample prefix and returns
// its public URL.
func UploadSample(ctx context.Context, store *storage.ObjectStorage, filename string, body io.Reader) (string, error) {
	if !isImageKey(filename) {
		return "", &types.ValidationError{Field: "filename", Reason: "must be a .jpg, .jpeg, .png or .webp image"}
	}
	return store.Put(ctx, samplePrefix+path.Base(filename), body, contentTypeFor(filename))
}

// UploadDated stores an image under a date-partitioned prefix
// (ai-images/YYYYMMDD/) and returns its public URL.
func UploadDated(ctx context.Context, store *storage.ObjectStorage, filename string, body io.Reader) (string, error) {
	if !isImageKey(filename) {
		return "", &types.ValidationError{Field: "filename", Reason: "must be a .jpg, .jpeg, .png or .webp image"}
	}
	key := fmt.Sprintf("ai-images/%s/%s", time.Now().Format("20060102"), path.Base(filename))
	return store.Put(ctx, key, body, contentTypeFor(filename))
}
