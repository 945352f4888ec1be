// Package progress tracks in-flight batch generation jobs. State lives only
// for the lifetime of the process: a restart abandons all in-flight batches,
// which is acceptable because clients poll and the durable record store
// captures every produced image independently.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/types"
)

// Batch status values. The only transition is StatusRunning -> StatusCompleted.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Event kinds for the batch log. Purely descriptive.
const (
	EventInfo    = "info"
	EventSuccess = "success"
	EventError   = "error"
)

// maxLogEntries caps the event log returned by Get.
const maxLogEntries = 100

// LogEntry is one timestamped human-readable event in a batch's log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// batchState is the mutable progress record for one batch. All access goes
// through the Tracker's lock.
type batchState struct {
	userID    uint64
	username  string
	total     int
	completed int
	failed    int
	status    string
	startedAt time.Time
	endedAt   *time.Time
	log       []LogEntry
}

// Snapshot is an immutable copy of a batch's progress, safe to hand to
// polling clients.
type Snapshot struct {
	BatchID   string     `json:"batch_id"`
	UserID    uint64     `json:"user_id"`
	Username  string     `json:"username"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Log       []LogEntry `json:"log"`
}

// Tracker holds progress for all batches started by this process. One mutex
// guards the whole map: contention is low and hold times are short, so
// per-batch locks are not worth it. The lock is never held across task
// execution, only across map mutations.
type Tracker struct {
	mu      sync.Mutex
	batches map[string]*batchState
}

// NewTracker creates an empty Tracker. The composition root owns the
// instance and injects it into handlers and workers.
func NewTracker() *Tracker {
	return &Tracker{
		batches: make(map[string]*batchState),
	}
}

// Create initializes a progress record before the first task begins.
// Creating a batch id that already exists is an error.
func (t *Tracker) Create(batchID string, userID uint64, username string, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.batches[batchID]; exists {
		return fmt.Errorf("batch %s already exists", batchID)
	}

	t.batches[batchID] = &batchState{
		userID:    userID,
		username:  username,
		total:     total,
		status:    StatusRunning,
		startedAt: time.Now(),
		log: []LogEntry{{
			Time:    time.Now(),
			Kind:    EventInfo,
			Message: fmt.Sprintf("batch started by %s: %d tasks", username, total),
		}},
	}
	return nil
}

// RecordEvent appends a timestamped log entry. Unknown batch ids are ignored:
// a worker may outlive interest in its batch but must never panic.
func (t *Tracker) RecordEvent(batchID, message, kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.batches[batchID]
	if !ok {
		return
	}
	b.log = append(b.log, LogEntry{Time: time.Now(), Kind: kind, Message: message})
}

// MarkTaskResult increments the completed or failed counter. Called exactly
// once per submitted task. The completed+failed <= total invariant is
// enforced: extra calls past total are dropped.
func (t *Tracker) MarkTaskResult(batchID string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.batches[batchID]
	if !ok {
		return
	}
	if b.completed+b.failed >= b.total {
		return
	}
	if success {
		b.completed++
	} else {
		b.failed++
	}
}

// Finish moves the batch to completed, sets the end time and appends a
// summary line. Finishing an already-completed batch is a no-op.
func (t *Tracker) Finish(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.batches[batchID]
	if !ok || b.status == StatusCompleted {
		return
	}
	now := time.Now()
	b.status = StatusCompleted
	b.endedAt = &now
	b.log = append(b.log, LogEntry{
		Time:    now,
		Kind:    EventInfo,
		Message: fmt.Sprintf("batch finished: %d completed, %d failed", b.completed, b.failed),
	})
}

// Get returns a snapshot for the requesting user. The log is truncated to
// the most recent entries. Unknown ids yield NotFoundError; a mismatched
// user yields ForbiddenError and no data.
func (t *Tracker) Get(batchID string, requestingUserID uint64) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.batches[batchID]
	if !ok {
		return Snapshot{}, &types.NotFoundError{Resource: "batch", ID: batchID}
	}
	if b.userID != requestingUserID {
		return Snapshot{}, &types.ForbiddenError{Resource: "batch"}
	}

	logStart := 0
	if len(b.log) > maxLogEntries {
		logStart = len(b.log) - maxLogEntries
	}
	logCopy := make([]LogEntry, len(b.log)-logStart)
	copy(logCopy, b.log[logStart:])

	return Snapshot{
		BatchID:   batchID,
		UserID:    b.userID,
		Username:  b.username,
		Total:     b.total,
		Completed: b.completed,
		Failed:    b.failed,
		Status:    b.status,
		StartedAt: b.startedAt,
		EndedAt:   b.endedAt,
		Log:       logCopy,
	}, nil
}
