package services_test

import (
	"testing"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/tests/helpers"
)

// localNoon anchors test data to the middle of today so day-boundary
// arithmetic cannot flake near midnight.
func localNoon() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
}

func TestOverview(t *testing.T) {
	db := helpers.OpenTestDB(t)
	alice := helpers.CreateTestUser(t, db, "alice", "secret1")
	bob := helpers.CreateTestUser(t, db, "bob", "secret1")

	noon := localNoon()
	helpers.CreateTestRecord(t, db, alice.ID, "today", noon)
	helpers.CreateTestRecord(t, db, alice.ID, "this week", noon.AddDate(0, 0, -3))
	helpers.CreateTestRecord(t, db, bob.ID, "long ago", noon.AddDate(0, 0, -30))

	stats, err := services.Overview(db)
	if err != nil {
		t.Fatalf("Failed to compute overview: %v", err)
	}

	if stats.TotalUsers != 2 {
		t.Errorf("Expected 2 users, got %d", stats.TotalUsers)
	}
	if stats.TotalRecords != 3 {
		t.Errorf("Expected 3 records, got %d", stats.TotalRecords)
	}
	if stats.RecordsToday != 1 {
		t.Errorf("Expected 1 record today, got %d", stats.RecordsToday)
	}
	if stats.RecordsWeek != 2 {
		t.Errorf("Expected 2 records this week, got %d", stats.RecordsWeek)
	}
}

func TestPerUserStats(t *testing.T) {
	db := helpers.OpenTestDB(t)
	alice := helpers.CreateTestUser(t, db, "alice", "secret1")
	bob := helpers.CreateTestUser(t, db, "bob", "secret1")

	noon := localNoon()
	helpers.CreateTestRecord(t, db, alice.ID, "one", noon.Add(-2*time.Minute))
	helpers.CreateTestRecord(t, db, alice.ID, "two", noon.Add(-1*time.Minute))

	stats, err := services.PerUserStats(db, nil, nil)
	if err != nil {
		t.Fatalf("Failed to compute per-user stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected a row per user, got %d", len(stats))
	}

	byName := map[string]services.UserStats{}
	for _, s := range stats {
		byName[s.Username] = s
	}

	if byName["alice"].Total != 2 {
		t.Errorf("Expected alice total 2, got %d", byName["alice"].Total)
	}
	if byName["alice"].LastRecordAt == "" {
		t.Error("Expected alice to have a last record timestamp")
	}
	// A user with no records still appears, with zero counts.
	if byName["bob"].Total != 0 {
		t.Errorf("Expected bob total 0, got %d", byName["bob"].Total)
	}
	if byName["bob"].UserID != bob.ID {
		t.Errorf("Expected bob's id %d, got %d", bob.ID, byName["bob"].UserID)
	}
}

func TestPerUserStatsDateRange(t *testing.T) {
	db := helpers.OpenTestDB(t)
	alice := helpers.CreateTestUser(t, db, "alice", "secret1")

	noon := localNoon()
	helpers.CreateTestRecord(t, db, alice.ID, "recent", noon)
	helpers.CreateTestRecord(t, db, alice.ID, "old", noon.AddDate(0, 0, -10))

	start := noon.AddDate(0, 0, -2)
	stats, err := services.PerUserStats(db, &start, nil)
	if err != nil {
		t.Fatalf("Failed to compute per-user stats: %v", err)
	}
	if stats[0].Total != 1 {
		t.Errorf("Expected 1 record in range, got %d", stats[0].Total)
	}
}

func TestDailyStatsWindow(t *testing.T) {
	db := helpers.OpenTestDB(t)
	alice := helpers.CreateTestUser(t, db, "alice", "secret1")
	bob := helpers.CreateTestUser(t, db, "bob", "secret1")

	noon := localNoon()
	// Two users today, one record two days ago, one outside the window.
	helpers.CreateTestRecord(t, db, alice.ID, "a", noon)
	helpers.CreateTestRecord(t, db, bob.ID, "b", noon.Add(-1*time.Minute))
	helpers.CreateTestRecord(t, db, alice.ID, "c", noon.AddDate(0, 0, -2))
	helpers.CreateTestRecord(t, db, alice.ID, "d", noon.AddDate(0, 0, -9))

	stats, err := services.DailyStats(db, 7)
	if err != nil {
		t.Fatalf("Failed to compute daily stats: %v", err)
	}

	// Only days inside the trailing window, with no records dropped or
	// invented. Days without records are absent.
	if len(stats) != 2 {
		t.Fatalf("Expected 2 days with records, got %d", len(stats))
	}
	// Most recent day first.
	if stats[0].Records != 2 || stats[0].Users != 2 {
		t.Errorf("Expected today 2 records / 2 users, got %d/%d", stats[0].Records, stats[0].Users)
	}
	if stats[1].Records != 1 || stats[1].Users != 1 {
		t.Errorf("Expected older day 1 record / 1 user, got %d/%d", stats[1].Records, stats[1].Users)
	}
	if len(stats[0].Day) != 10 {
		t.Errorf("Expected YYYY-MM-DD day labels, got %q", stats[0].Day)
	}
}
