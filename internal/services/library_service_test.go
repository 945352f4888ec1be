package services_test

import (
	"fmt"
	"testing"

	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"github.com/winnerqin/jimeng4-image-generator/tests/helpers"
)

func TestSaveAssetValidation(t *testing.T) {
	db := helpers.OpenTestDB(t)
	user := helpers.CreateTestUser(t, db, "alice", "secret1")

	cases := []struct {
		name                    string
		category, filename, url string
	}{
		{"bad category", "vehicle", "a.jpg", "https://example.com/a.jpg"},
		{"missing filename", services.CategoryPerson, "", "https://example.com/a.jpg"},
		{"missing url", services.CategoryPerson, "a.jpg", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := services.SaveAsset(db, user.ID, tc.category, tc.filename, tc.url, nil)
			if !types.IsValidation(err) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSaveAssetRejectsStructuredMeta(t *testing.T) {
	db := helpers.OpenTestDB(t)
	user := helpers.CreateTestUser(t, db, "alice", "secret1")

	meta := map[string]interface{}{
		"nested": map[string]interface{}{"too": "deep"},
	}
	_, err := services.SaveAsset(db, user.ID, services.CategoryPerson, "a.jpg", "https://example.com/a.jpg", meta)
	if !types.IsValidation(err) {
		t.Errorf("Expected ValidationError for nested meta, got %v", err)
	}
}

func TestSaveAndListAssets(t *testing.T) {
	db := helpers.OpenTestDB(t)
	user := helpers.CreateTestUser(t, db, "alice", "secret1")

	meta := map[string]interface{}{"label": "grandma", "favorite": true}
	id, err := services.SaveAsset(db, user.ID, services.CategoryPerson, "grandma.jpg", "https://example.com/grandma.jpg", meta)
	if err != nil {
		t.Fatalf("Failed to save asset: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected a non-zero asset id")
	}

	assets, err := services.ListAssets(db, user.ID, services.CategoryPerson, 20)
	if err != nil {
		t.Fatalf("Failed to list assets: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("Expected 1 asset, got %d", len(assets))
	}
	if assets[0].Filename != "grandma.jpg" {
		t.Errorf("Unexpected filename %q", assets[0].Filename)
	}
	if assets[0].Meta["label"] != "grandma" {
		t.Errorf("Expected meta round trip, got %v", assets[0].Meta)
	}

	// The scene library is a separate collection.
	scenes, err := services.ListAssets(db, user.ID, services.CategoryScene, 20)
	if err != nil {
		t.Fatalf("Failed to list scenes: %v", err)
	}
	if len(scenes) != 0 {
		t.Errorf("Expected empty scene library, got %d", len(scenes))
	}
}

func TestListAssetsMostRecentFirst(t *testing.T) {
	db := helpers.OpenTestDB(t)
	user := helpers.CreateTestUser(t, db, "alice", "secret1")

	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://example.com/s%d.jpg", i)
		if _, err := services.SaveAsset(db, user.ID, services.CategoryScene, fmt.Sprintf("s%d.jpg", i), url, nil); err != nil {
			t.Fatalf("Failed to save asset: %v", err)
		}
	}

	assets, err := services.ListAssets(db, user.ID, services.CategoryScene, 2)
	if err != nil {
		t.Fatalf("Failed to list assets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("Expected limit of 2 assets, got %d", len(assets))
	}
	if assets[0].Filename != "s2.jpg" {
		t.Errorf("Expected most recent first, got %q", assets[0].Filename)
	}
}

func TestListAssetsIsolatedPerUser(t *testing.T) {
	db := helpers.OpenTestDB(t)
	alice := helpers.CreateTestUser(t, db, "alice", "secret1")
	bob := helpers.CreateTestUser(t, db, "bob", "secret1")

	if _, err := services.SaveAsset(db, alice.ID, services.CategoryPerson, "a.jpg", "https://example.com/a.jpg", nil); err != nil {
		t.Fatalf("Failed to save asset: %v", err)
	}

	assets, err := services.ListAssets(db, bob.ID, services.CategoryPerson, 20)
	if err != nil {
		t.Fatalf("Failed to list assets: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("Expected bob to see no assets, got %d", len(assets))
	}
}

func TestDeleteAsset(t *testing.T) {
	db := helpers.OpenTestDB(t)
	alice := helpers.CreateTestUser(t, db, "alice", "secret1")
	bob := helpers.CreateTestUser(t, db, "bob", "secret1")

	id, err := services.SaveAsset(db, alice.ID, services.CategoryPerson, "a.jpg", "https://example.com/a.jpg", nil)
	if err != nil {
		t.Fatalf("Failed to save asset: %v", err)
	}

	// Another user's delete is a silent no-op.
	if err := services.DeleteAsset(db, bob.ID, services.CategoryPerson, id); err != nil {
		t.Fatalf("Cross-user delete errored: %v", err)
	}
	assets, _ := services.ListAssets(db, alice.ID, services.CategoryPerson, 20)
	if len(assets) != 1 {
		t.Fatalf("Expected asset to survive cross-user delete, got %d", len(assets))
	}

	// The owner's delete removes it; repeating is a no-op.
	if err := services.DeleteAsset(db, alice.ID, services.CategoryPerson, id); err != nil {
		t.Fatalf("Failed to delete asset: %v", err)
	}
	if err := services.DeleteAsset(db, alice.ID, services.CategoryPerson, id); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}
	assets, _ = services.ListAssets(db, alice.ID, services.CategoryPerson, 20)
	if len(assets) != 0 {
		t.Errorf("Expected empty library after delete, got %d", len(assets))
	}
}
