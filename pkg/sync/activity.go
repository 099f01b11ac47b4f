package sync

import (
	goSync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MaxActivityEntries is how many entries the ActivityLog keeps. Older entries
// are dropped first.
const MaxActivityEntries = 1000

// ActivityStatus is the outcome recorded in an ActivityEntry.
type ActivityStatus string

const (
	// ActivitySuccess marks a successful action.
	ActivitySuccess ActivityStatus = "success"

	// ActivityError marks a failed action.
	ActivityError ActivityStatus = "error"
)

// ActivityEntry is a single record in the ActivityLog. Entries are never
// modified after they're appended.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	FilePath  string         `json:"filePath"`
	Status    ActivityStatus `json:"status"`
	Details   string         `json:"details,omitempty"`
}

// ActivityLog is a bounded, append-only record of sync outcomes.
type ActivityLog struct {
	lock     goSync.Mutex
	entries  []ActivityEntry
	capacity int
	clock    clockwork.Clock
}

// NewActivityLog creates an empty log that keeps the most recent
// MaxActivityEntries entries.
func NewActivityLog(clock clockwork.Clock) *ActivityLog {
	return newActivityLog(clock, MaxActivityEntries)
}

func newActivityLog(clock clockwork.Clock, capacity int) *ActivityLog {
	return &ActivityLog{
		clock:    clock,
		capacity: capacity,
	}
}

// Record appends an entry stamped with the current time, and returns it.
func (l *ActivityLog) Record(action, filePath string, status ActivityStatus, details string) ActivityEntry {
	entry := ActivityEntry{
		ID:        uuid.New().String(),
		Timestamp: l.clock.Now().UTC(),
		Action:    action,
		FilePath:  filePath,
		Status:    status,
		Details:   details,
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	l.entries = append(l.entries, entry)
	if extra := len(l.entries) - l.capacity; extra > 0 {
		// Copy into a fresh slice so the evicted entries can be garbage
		// collected.
		l.entries = append([]ActivityEntry(nil), l.entries[extra:]...)
	}
	return entry
}

// Recent returns up to `limit` of the newest entries, oldest first.
func (l *ActivityLog) Recent(limit int) []ActivityEntry {
	l.lock.Lock()
	defer l.lock.Unlock()

	if limit <= 0 {
		return []ActivityEntry{}
	}

	start := 0
	if len(l.entries) > limit {
		start = len(l.entries) - limit
	}
	return append([]ActivityEntry{}, l.entries[start:]...)
}

// Len returns the number of retained entries.
func (l *ActivityLog) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.entries)
}
