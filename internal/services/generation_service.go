package services

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/progress"
	"github.com/winnerqin/jimeng4-image-generator/internal/providers"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"gorm.io/gorm"
)

// maxSeed is the provider's upper bound for seed values.
const maxSeed = 99999999

// defaultSteps matches the provider's recommended sampling step count.
const defaultSteps = 28

// dimensions is one width/height pair.
type dimensions struct {
	Width  int
	Height int
}

// aspectRatios maps aspect-ratio label x resolution label to pixel
// dimensions. Unknown combinations fall back to 2048x2048.
var aspectRatios = map[string]map[string]dimensions{
	"1:1":  {"1k": {1024, 1024}, "2k": {2048, 2048}, "4k": {4096, 4096}},
	"2:3":  {"1k": {683, 1024}, "2k": {1365, 2048}, "4k": {2731, 4096}},
	"3:2":  {"1k": {1024, 683}, "2k": {2048, 1365}, "4k": {4096, 2731}},
	"3:4":  {"1k": {768, 1024}, "2k": {1536, 2048}, "4k": {3072, 4096}},
	"4:3":  {"1k": {1024, 768}, "2k": {2048, 1536}, "4k": {4096, 3072}},
	"16:9": {"1k": {1024, 576}, "2k": {2048, 1152}, "4k": {4096, 2304}},
	"9:16": {"1k": {576, 1024}, "2k": {1152, 2048}, "4k": {2304, 4096}},
}

// ResolveDimensions returns the pixel size for an aspect-ratio and
// resolution label pair.
func ResolveDimensions(aspectRatio, resolution string) (int, int) {
	if byRes, ok := aspectRatios[aspectRatio]; ok {
		if dims, ok := byRes[resolution]; ok {
			return dims.Width, dims.Height
		}
	}
	return 2048, 2048
}

// NextSeed computes the seed for attempt i. A zero base means randomize per
// attempt; otherwise seeds increment from the base and wrap into the
// provider's [1, maxSeed] range.
func NextSeed(base int64, i int) int64 {
	if base == 0 {
		return rand.Int63n(maxSeed) + 1
	}
	seed := base + int64(i)
	if seed > maxSeed {
		seed = (seed % maxSeed) + 1
	}
	return seed
}

// GenerateRequest are the parameters for a single or batch generation
// submission, after boundary validation.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Resolution     string
	NumImages      int
	Steps          int
	Seed           int64
	FilenameBase   string
	SampleImages   []models.SampleImage
}

// GeneratedImage describes one produced output.
type GeneratedImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Seed     int64  `json:"seed"`
}

// Generator runs generation requests against a provider and persists the
// results. It is safe for concurrent use; each batch gets its own goroutine.
type Generator struct {
	DB       *gorm.DB
	Provider providers.ImageGenerator
	Cfg      *config.Config
	Log      zerolog.Logger
}

// normalize fills request defaults.
func (r *GenerateRequest) normalize() error {
	if r.Prompt == "" {
		return &types.ValidationError{Field: "prompt", Reason: "required"}
	}
	if r.AspectRatio == "" {
		r.AspectRatio = "1:1"
	}
	if r.Resolution == "" {
		r.Resolution = "2k"
	}
	if r.NumImages <= 0 {
		r.NumImages = 1
	}
	if r.Steps <= 0 {
		r.Steps = defaultSteps
	}
	if r.FilenameBase == "" {
		r.FilenameBase = "generated"
	}
	return nil
}

// outputName returns the filename for attempt i of a multi-image request.
func outputName(base string, i, total int) string {
	if total > 1 {
		return fmt.Sprintf("%s_%d.jpg", base, i+1)
	}
	return base + ".jpg"
}

// generateOne runs a single attempt: provider call, file write, record
// insert. The returned record id is informational; dedup may return an
// existing id on retried requests.
func (g *Generator) generateOne(ctx context.Context, userID uint64, req *GenerateRequest, i int, seed int64, width, height int, batchID string) (GeneratedImage, error) {
	imageURLs := make([]string, 0, len(req.SampleImages))
	for _, s := range req.SampleImages {
		imageURLs = append(imageURLs, s.URL)
	}

	img, err := g.Provider.GenerateImage(ctx, providers.GenerateParams{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          width,
		Height:         height,
		Steps:          req.Steps,
		Seed:           seed,
		ImageURLs:      imageURLs,
	})
	if err != nil {
		return GeneratedImage{}, err
	}

	filename := outputName(req.FilenameBase, i, req.NumImages)
	userDir := filepath.Join(g.Cfg.OutputDir, fmt.Sprintf("%d", userID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return GeneratedImage{}, err
	}
	if err := os.WriteFile(filepath.Join(userDir, filename), img, 0o644); err != nil {
		return GeneratedImage{}, err
	}

	imagePath := fmt.Sprintf("/output/%d/%s", userID, filename)

	samples, err := EncodeSampleImages(req.SampleImages)
	if err != nil {
		return GeneratedImage{}, err
	}
	_, err = SaveGenerationRecord(g.DB, &models.GenerationRecord{
		UserID:         userID,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
		Width:          width,
		Height:         height,
		NumImages:      1,
		Seed:           seed,
		Steps:          req.Steps,
		SampleImages:   samples,
		ImagePath:      imagePath,
		Filename:       filename,
		BatchID:        batchID,
		Status:         "success",
	})
	if err != nil {
		// The image is on disk; losing the history row is logged, not fatal.
		g.Log.Error().Err(err).Str("filename", filename).Msg("failed to save generation record")
	}

	return GeneratedImage{Filename: filename, URL: imagePath, Seed: seed}, nil
}

// Generate runs a single (non-batch) request, attempting each image in
// order. A failed attempt is logged and skipped; the call fails only when
// no image at all was produced.
func (g *Generator) Generate(ctx context.Context, userID uint64, req GenerateRequest) ([]GeneratedImage, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	width, height := ResolveDimensions(req.AspectRatio, req.Resolution)

	images := []GeneratedImage{}
	for i := 0; i < req.NumImages; i++ {
		seed := NextSeed(req.Seed, i)
		img, err := g.generateOne(ctx, userID, &req, i, seed, width, height, "")
		if err != nil {
			g.Log.Warn().Err(err).Int("attempt", i+1).Msg("generation attempt failed")
			continue
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     fmt.Errorf("all %d attempts failed", req.NumImages),
		}
	}
	return images, nil
}

// RunBatch executes a batch on the calling goroutine, updating the tracker
// as each task finishes. The tracker entry must already exist (Create is
// called by the submitting request before the worker is spawned). Tasks run
// sequentially in submission order; one task's failure never aborts the
// rest. The tracker lock is never held during task execution.
func (g *Generator) RunBatch(ctx context.Context, tracker *progress.Tracker, batchID string, userID uint64, req GenerateRequest) {
	if err := req.normalize(); err != nil {
		// Submission validated already; a failure here means every task fails.
		for i := 0; i < req.NumImages; i++ {
			tracker.MarkTaskResult(batchID, false)
		}
		tracker.Finish(batchID)
		return
	}
	width, height := ResolveDimensions(req.AspectRatio, req.Resolution)

	for i := 0; i < req.NumImages; i++ {
		seed := NextSeed(req.Seed, i)
		tracker.RecordEvent(batchID, fmt.Sprintf("task %d/%d started (seed %d)", i+1, req.NumImages, seed), progress.EventInfo)

		img, err := g.generateOne(ctx, userID, &req, i, seed, width, height, batchID)
		if err != nil {
			g.Log.Warn().Err(err).Str("batch_id", batchID).Int("task", i+1).Msg("batch task failed")
			tracker.RecordEvent(batchID, fmt.Sprintf("task %d/%d failed: %v", i+1, req.NumImages, err), progress.EventError)
			tracker.MarkTaskResult(batchID, false)
			continue
		}

		tracker.RecordEvent(batchID, fmt.Sprintf("task %d/%d produced %s", i+1, req.NumImages, img.Filename), progress.EventSuccess)
		tracker.MarkTaskResult(batchID, true)
	}

	tracker.Finish(batchID)
	g.Log.Info().Str("batch_id", batchID).Msg("batch finished")
}
