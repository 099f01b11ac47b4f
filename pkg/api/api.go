// Package api defines the messages exchanged between the davsync agent and
// the CLI over the agent's loopback HTTP API.
package api

import (
	"net/http"

	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/sync"
)

// The API endpoints.
const (
	StatusPath   = "/v1/status"
	ActivityPath = "/v1/activity"
	SyncPath     = "/v1/sync"
)

// DefaultActivityLimit is the number of activity entries returned when the
// request doesn't specify a limit.
const DefaultActivityLimit = 50

// StatusResponse is the response to a status request.
type StatusResponse struct {
	Status sync.Status `json:"status"`
}

// ActivityResponse is the response to an activity request. The entries are
// oldest first.
type ActivityResponse struct {
	Entries []sync.ActivityEntry `json:"entries"`
}

// SyncResponse is the response to a sync request. Error is nil if the sync
// ran, even if syncing one of the directories failed. The outcome of the
// sync is available through the status and activity.
type SyncResponse struct {
	Error *Error `json:"error,omitempty"`
}

// Error is an error sent over the API.
type Error struct {
	Kind     ErrorKind `json:"kind,omitempty"`
	Message  string    `json:"message"`
	Friendly bool      `json:"friendly,omitempty"`
}

// ErrorKind identifies errors that the client handles specially.
type ErrorKind string

const (
	KindSyncInProgress ErrorKind = "sync_in_progress"
	KindNotConfigured  ErrorKind = "not_configured"
	KindNotLoggedIn    ErrorKind = "not_logged_in"
	KindTokenExpired   ErrorKind = "token_expired"
)

// MarshalError converts `err` into its wire format.
func MarshalError(err error) *Error {
	if err == nil {
		return nil
	}

	apiErr := &Error{Message: err.Error()}
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		apiErr.Message = msg
		apiErr.Friendly = true
	}

	switch errors.RootCause(err).(type) {
	case errors.NotConfigured:
		apiErr.Kind = KindNotConfigured
	case errors.NotLoggedIn:
		apiErr.Kind = KindNotLoggedIn
	case errors.TokenExpired:
		apiErr.Kind = KindTokenExpired
	}
	if errors.RootCause(err) == errors.ErrSyncInProgress {
		apiErr.Kind = KindSyncInProgress
	}
	return apiErr
}

// Unmarshal converts the error back into a Go error. Friendly errors stay
// friendly so that the CLI can print them directly.
func (err *Error) Unmarshal() error {
	if err == nil {
		return nil
	}

	switch {
	case err.Kind == KindSyncInProgress:
		return errors.ErrSyncInProgress
	case err.Friendly:
		return errors.NewFriendlyError("%s", err.Message)
	default:
		return errors.New("%s", err.Message)
	}
}

// HTTPStatus returns the HTTP status code that the error is sent with.
func (err *Error) HTTPStatus() int {
	if err == nil {
		return http.StatusOK
	}

	switch err.Kind {
	case KindSyncInProgress:
		return http.StatusConflict
	case KindNotConfigured:
		return http.StatusPreconditionFailed
	case KindNotLoggedIn, KindTokenExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
