package sync

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogRecord(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	log := NewActivityLog(clock)

	first := log.Record("sync_personal", "", ActivitySuccess, "")
	clock.Advance(time.Minute)
	second := log.Record("sync_shared", "", ActivityError, "rclone exited with code 1")

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	entries := log.Recent(50)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0])
	assert.Equal(t, ActivityEntry{
		ID:        second.ID,
		Timestamp: time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC),
		Action:    "sync_shared",
		Status:    ActivityError,
		Details:   "rclone exited with code 1",
	}, entries[1])
}

func TestActivityLogRecent(t *testing.T) {
	log := NewActivityLog(clockwork.NewFakeClock())
	for i := 0; i < 5; i++ {
		log.Record(fmt.Sprintf("action-%d", i), "", ActivitySuccess, "")
	}

	actions := func(entries []ActivityEntry) (names []string) {
		for _, entry := range entries {
			names = append(names, entry.Action)
		}
		return names
	}

	assert.Equal(t, []string{"action-3", "action-4"}, actions(log.Recent(2)))
	assert.Len(t, log.Recent(100), 5)
	assert.Empty(t, log.Recent(0))
	assert.Empty(t, log.Recent(-1))

	// The returned slice is a copy.
	recent := log.Recent(1)
	recent[0].Action = "modified"
	assert.Equal(t, "action-4", log.Recent(1)[0].Action)
}

func TestActivityLogCapacity(t *testing.T) {
	log := NewActivityLog(clockwork.NewFakeClock())
	total := MaxActivityEntries + 250
	for i := 0; i < total; i++ {
		log.Record(fmt.Sprintf("action-%d", i), "", ActivitySuccess, "")
		assert.True(t, log.Len() <= MaxActivityEntries)
	}

	entries := log.Recent(total)
	require.Len(t, entries, MaxActivityEntries)
	for i, entry := range entries {
		assert.Equal(t, fmt.Sprintf("action-%d", total-MaxActivityEntries+i), entry.Action)
	}
}

func TestActivityLogSmallCapacity(t *testing.T) {
	log := newActivityLog(clockwork.NewFakeClock(), 2)
	log.Record("a", "", ActivitySuccess, "")
	log.Record("b", "", ActivitySuccess, "")
	log.Record("c", "", ActivityError, "")

	entries := log.Recent(10)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Action)
	assert.Equal(t, "c", entries[1].Action)
}
