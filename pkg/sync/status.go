package sync

import (
	goSync "sync"
)

// Phase is the high-level state of the sync agent.
type Phase string

const (
	// PhaseNotConfigured means the server or account aren't known yet.
	PhaseNotConfigured Phase = "not_configured"

	// PhaseIdle means the last sync of both directories succeeded.
	PhaseIdle Phase = "idle"

	// PhaseSyncing means a sync is currently running.
	PhaseSyncing Phase = "syncing"

	// PhaseConflict means rclone reported conflicting changes.
	PhaseConflict Phase = "conflict"

	// PhaseError means the last sync failed. The Status message says why.
	PhaseError Phase = "error"
)

// Status is the current state of the agent, as shown to the user.
type Status struct {
	Phase Phase `json:"phase"`

	// Message is only set for PhaseError.
	Message string `json:"message,omitempty"`
}

// Convenience constructors for each of the phases.
var (
	NotConfigured = Status{Phase: PhaseNotConfigured}
	Idle          = Status{Phase: PhaseIdle}
	Syncing       = Status{Phase: PhaseSyncing}
	Conflict      = Status{Phase: PhaseConflict}
)

// Error returns the error status with the given message.
func Error(msg string) Status {
	return Status{Phase: PhaseError, Message: msg}
}

func (s Status) String() string {
	if s.Phase == PhaseError && s.Message != "" {
		return string(s.Phase) + ": " + s.Message
	}
	return string(s.Phase)
}

// StatusStore holds the current Status. The lock is only held while reading
// or writing the value.
type StatusStore struct {
	lock   goSync.Mutex
	status Status
}

// NewStatusStore creates a store in the NotConfigured state.
func NewStatusStore() *StatusStore {
	return &StatusStore{status: NotConfigured}
}

// Get returns the current status.
func (s *StatusStore) Get() Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.status
}

// Set replaces the current status, and returns the previous one.
func (s *StatusStore) Set(status Status) Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	prev := s.status
	s.status = status
	return prev
}
