package providers

import "context"

// GenerateParams are the inputs for one image generation attempt. Each call
// produces at most one image; callers loop for multi-image requests.
type GenerateParams struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	Seed           int64
	ImageURLs      []string
}

// ImageGenerator produces one image from a text prompt and optional
// reference images. Implementations must honor ctx cancellation.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, params GenerateParams) ([]byte, error)
}
