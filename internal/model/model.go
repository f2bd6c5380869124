package model

import (
	"encoding/json"
	"time"
)

// Task is one daily checklist item. The id set is fixed at startup; tasks are
// toggled, reordered, and reset, but never created or deleted at runtime.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Completed bool `json:"completed"`

	// CompletedAt is display-only. Invariant: present iff Completed.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// StreakRecord counts consecutive calendar days with at least one completion.
type StreakRecord struct {
	Count int `json:"count"`

	// LastCompletedDate is a local calendar date (no time component),
	// formatted with checklist.DateFormat. Empty when no completion was
	// ever credited.
	LastCompletedDate string `json:"lastCompletedDate,omitempty"`
}

// ProgressSnapshot is derived from the task registry on every mutation.
// It is a pure view: persisted for display only, never read back as truth.
type ProgressSnapshot struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (p ProgressSnapshot) AllComplete() bool {
	return p.Total > 0 && p.Completed == p.Total
}

func (p ProgressSnapshot) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}

// UserProfile mirrors the relay response. Beyond Username the fields are
// optional display data; the raw response body is what gets cached, so
// unknown fields survive a round trip untouched.
type UserProfile struct {
	Username string          `json:"username"`
	Rank     json.Number     `json:"rank,omitempty"`
	Stats    json.RawMessage `json:"stats,omitempty"`
}

// UserProgressEntry is one task's state inside a per-user progress snapshot.
type UserProgressEntry struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UserProgress is the per-user snapshot written under isru_progress_<username>
// whenever progress is recomputed while a user is logged in.
type UserProgress struct {
	Completed   []UserProgressEntry `json:"completed"`
	Streak      int                 `json:"streak"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

// Event is one append-only audit record (toggles, logins, resets).
type Event struct {
	ID       string    `json:"id"`
	TS       time.Time `json:"ts"`
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	Payload  any       `json:"payload,omitempty"`
}
