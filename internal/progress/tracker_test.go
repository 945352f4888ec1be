package progress_test

import (
	"fmt"
	"testing"

	"github.com/winnerqin/jimeng4-image-generator/internal/progress"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
)

func TestCreateAndGet(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 3); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}

	snap, err := tracker.Get("batch-1", 1)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if snap.Status != progress.StatusRunning {
		t.Errorf("Expected status %q, got %q", progress.StatusRunning, snap.Status)
	}
	if snap.Total != 3 || snap.Completed != 0 || snap.Failed != 0 {
		t.Errorf("Expected fresh counters 3/0/0, got %d/%d/%d", snap.Total, snap.Completed, snap.Failed)
	}
	if len(snap.Log) == 0 {
		t.Error("Expected a start log entry")
	}
}

func TestCreateDuplicate(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 2); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}
	if err := tracker.Create("batch-1", 1, "alice", 2); err == nil {
		t.Error("Expected error creating a duplicate batch id")
	}
}

func TestGetUnknownBatch(t *testing.T) {
	tracker := progress.NewTracker()

	_, err := tracker.Get("nope", 1)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestGetOtherUsersBatch(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 1); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}

	_, err := tracker.Get("batch-1", 2)
	if !types.IsForbidden(err) {
		t.Errorf("Expected ForbiddenError, got %v", err)
	}
}

func TestMixedOutcomeBatch(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 3); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}

	tracker.MarkTaskResult("batch-1", true)
	tracker.MarkTaskResult("batch-1", false)
	tracker.MarkTaskResult("batch-1", true)
	tracker.Finish("batch-1")

	snap, err := tracker.Get("batch-1", 1)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if snap.Completed != 2 || snap.Failed != 1 {
		t.Errorf("Expected 2 completed / 1 failed, got %d/%d", snap.Completed, snap.Failed)
	}
	if snap.Status != progress.StatusCompleted {
		t.Errorf("Expected status %q, got %q", progress.StatusCompleted, snap.Status)
	}
	if snap.EndedAt == nil {
		t.Error("Expected ended timestamp after finish")
	}
}

func TestCountersNeverExceedTotal(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 2); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}

	// Extra results beyond the planned total are dropped.
	tracker.MarkTaskResult("batch-1", true)
	tracker.MarkTaskResult("batch-1", true)
	tracker.MarkTaskResult("batch-1", false)
	tracker.MarkTaskResult("batch-1", true)

	snap, err := tracker.Get("batch-1", 1)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if snap.Completed+snap.Failed > snap.Total {
		t.Errorf("Counters exceed total: %d+%d > %d", snap.Completed, snap.Failed, snap.Total)
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 1); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}
	tracker.MarkTaskResult("batch-1", true)
	tracker.Finish("batch-1")

	first, err := tracker.Get("batch-1", 1)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}

	tracker.Finish("batch-1")
	second, err := tracker.Get("batch-1", 1)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}

	if !first.EndedAt.Equal(*second.EndedAt) {
		t.Error("Finish changed the end timestamp on repeat")
	}
	if len(second.Log) != len(first.Log) {
		t.Error("Finish appended a second summary entry")
	}
}

func TestEventsOnUnknownBatchAreIgnored(t *testing.T) {
	tracker := progress.NewTracker()

	// Must not panic or create state.
	tracker.RecordEvent("nope", "hello", progress.EventInfo)
	tracker.MarkTaskResult("nope", true)
	tracker.Finish("nope")

	if _, err := tracker.Get("nope", 1); !types.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestLogIsCapped(t *testing.T) {
	tracker := progress.NewTracker()

	if err := tracker.Create("batch-1", 1, "alice", 1); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}

	for i := 0; i < 250; i++ {
		tracker.RecordEvent("batch-1", fmt.Sprintf("event %d", i), progress.EventInfo)
	}

	snap, err := tracker.Get("batch-1", 1)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if len(snap.Log) > 100 {
		t.Errorf("Expected log capped at 100 entries, got %d", len(snap.Log))
	}
	// The cap keeps the most recent entries.
	last := snap.Log[len(snap.Log)-1]
	if last.Message != "event 249" {
		t.Errorf("Expected newest entry retained, got %q", last.Message)
	}
}
