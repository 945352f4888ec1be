package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/handlers"
	"github.com/winnerqin/jimeng4-image-generator/internal/middleware"
	"github.com/winnerqin/jimeng4-image-generator/internal/progress"
	"github.com/winnerqin/jimeng4-image-generator/internal/providers"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"github.com/winnerqin/jimeng4-image-generator/tests/helpers"
)

// cannedProvider returns the same bytes for every request.
type cannedProvider struct{}

func (cannedProvider) GenerateImage(_ context.Context, _ providers.GenerateParams) ([]byte, error) {
	return []byte("\xff\xd8\xff\xe0fake-jpeg"), nil
}

// TestFullUserJourney drives the whole API surface the way a browser session
// would: log in, generate a batch, watch its progress, browse the resulting
// records, and read the admin statistics.
func TestFullUserJourney(t *testing.T) {
	db := helpers.OpenTestDB(t)
	cfg := &config.Config{
		JWTSecret: "e2e-secret",
		TokenTTL:  time.Hour,
		OutputDir: t.TempDir(),
		UploadDir: t.TempDir(),
	}

	tracker := progress.NewTracker()
	generator := &services.Generator{DB: db, Provider: cannedProvider{}, Cfg: cfg, Log: zerolog.Nop()}

	app := fiber.New()

	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	genHandler := &handlers.GenerateHandler{Gen: generator, Tracker: tracker}
	recordsHandler := &handlers.RecordsHandler{DB: db}
	statsHandler := &handlers.StatsHandler{DB: db}

	api := app.Group("/api", middleware.VersionMiddleware())
	auth := middleware.AuthUser(cfg)
	admin := middleware.RequireAdmin()

	api.Post("/login", authHandler.Login)
	api.Get("/me", auth, authHandler.Me)
	api.Post("/batch-generate", auth, genHandler.BatchGenerate)
	api.Get("/batch-progress/:batch_id", auth, genHandler.BatchProgress)
	api.Get("/records", auth, recordsHandler.ListRecords)
	api.Get("/records/batch/:batch_id", auth, recordsHandler.GetBatchRecords)
	api.Delete("/records/:id", auth, recordsHandler.DeleteRecord)
	api.Get("/stats/overview", auth, admin, statsHandler.Overview)

	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "Resource not found")
	})

	if _, err := services.CreateUser(db, cfg, "admin", "admin-pass1"); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}
	userID, err := services.CreateUser(db, cfg, "journey", "journey-pass1")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	// Log in over HTTP rather than minting a token directly.
	var token string
	{
		body, _ := json.Marshal(map[string]string{"username": "journey", "password": "journey-pass1"})
		req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to log in: %v", err)
		}
		helpers.AssertStatus(t, resp, 200)
		var result struct {
			Token string `json:"token"`
		}
		helpers.ParseJSON(t, resp, &result)
		token = result.Token
	}

	// Submit a batch of two images.
	var batchID string
	{
		body, _ := json.Marshal(map[string]interface{}{
			"prompt":       "an old lighthouse at dusk",
			"aspect_ratio": "16:9",
			"resolution":   "2k",
			"num_images":   2,
			"seed":         1000,
			"filename":     "lighthouse",
		})
		req := httptest.NewRequest("POST", "/api/batch-generate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to submit batch: %v", err)
		}
		helpers.AssertStatus(t, resp, 202)
		var result struct {
			BatchID string `json:"batch_id"`
		}
		helpers.ParseJSON(t, resp, &result)
		batchID = result.BatchID
	}

	// Watch the batch run to completion.
	var snap progress.Snapshot
	deadline := time.Now().Add(5 * time.Second)
	for {
		req := httptest.NewRequest("GET", "/api/batch-progress/"+batchID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to poll progress: %v", err)
		}
		helpers.AssertStatus(t, resp, 200)
		helpers.ParseJSON(t, resp, &snap)
		if snap.Status == progress.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Batch did not finish: %+v", snap)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if snap.Completed != 2 || snap.Failed != 0 {
		t.Fatalf("Expected 2/0 completed/failed, got %d/%d", snap.Completed, snap.Failed)
	}
	if len(snap.Log) == 0 {
		t.Error("Expected batch log entries")
	}

	// Both images must exist on disk under the user's output directory.
	for _, name := range []string{"lighthouse_1.jpg", "lighthouse_2.jpg"} {
		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("%d", userID), name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected image file %s: %v", path, err)
		}
	}

	// The records show up with sequential seeds and 16:9 2k dimensions.
	{
		req := httptest.NewRequest("GET", "/api/records/batch/"+batchID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to fetch batch records: %v", err)
		}
		helpers.AssertStatus(t, resp, 200)
		var result struct {
			Records []services.RecordView `json:"records"`
			Total   int                   `json:"total"`
		}
		helpers.ParseJSON(t, resp, &result)
		if result.Total != 2 {
			t.Fatalf("Expected 2 batch records, got %d", result.Total)
		}
		seeds := map[int64]bool{}
		for _, r := range result.Records {
			seeds[r.Seed] = true
			if r.Width != 2048 || r.Height != 1152 {
				t.Errorf("Expected 2048x1152, got %dx%d", r.Width, r.Height)
			}
		}
		if !seeds[1000] || !seeds[1001] {
			t.Errorf("Expected seeds 1000 and 1001, got %v", seeds)
		}
	}

	// Delete one record and confirm the listing shrinks.
	{
		req := httptest.NewRequest("GET", "/api/records", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		var list struct {
			Records []services.RecordView `json:"records"`
			Total   int64                 `json:"total"`
		}
		helpers.ParseJSON(t, resp, &list)
		if list.Total != 2 {
			t.Fatalf("Expected 2 records, got %d", list.Total)
		}

		req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/records/%d", list.Records[0].ID), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = app.Test(req)
		if err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
		helpers.AssertStatus(t, resp, 200)

		req = httptest.NewRequest("GET", "/api/records", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = app.Test(req)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		helpers.ParseJSON(t, resp, &list)
		if list.Total != 1 {
			t.Errorf("Expected 1 record after delete, got %d", list.Total)
		}
	}

	// Admin sees the activity in the overview.
	{
		body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin-pass1"})
		req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to log in as admin: %v", err)
		}
		var result struct {
			Token string `json:"token"`
		}
		helpers.ParseJSON(t, resp, &result)

		req = httptest.NewRequest("GET", "/api/stats/overview", nil)
		req.Header.Set("Authorization", "Bearer "+result.Token)
		resp, err = app.Test(req)
		if err != nil {
			t.Fatalf("Failed to fetch overview: %v", err)
		}
		helpers.AssertStatus(t, resp, 200)
		var stats services.OverviewStats
		helpers.ParseJSON(t, resp, &stats)
		if stats.TotalUsers != 2 {
			t.Errorf("Expected 2 users, got %d", stats.TotalUsers)
		}
		if stats.TotalRecords != 1 {
			t.Errorf("Expected 1 record, got %d", stats.TotalRecords)
		}
	}

	// Unknown routes come back as the standard JSON error envelope.
	{
		req := httptest.NewRequest("GET", "/api/nope", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to hit unknown route: %v", err)
		}
		helpers.AssertStatus(t, resp, 404)
		var envelope map[string]interface{}
		helpers.ParseJSON(t, resp, &envelope)
		if envelope["ok"] != false {
			t.Errorf("Expected ok=false in error envelope, got %v", envelope)
		}
	}
}
