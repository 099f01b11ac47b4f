package sync

//go:generate mockery -name Notifier

import (
	"context"
	goSync "sync"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/rclone"
)

// Rclone is the subset of the rclone client used by the Engine.
type Rclone interface {
	Obscure(ctx context.Context, secret string) (string, error)
	Bisync(ctx context.Context, opts rclone.BisyncOptions) (rclone.Result, error)
}

// Notifier alerts the user when a sync ends in a state that needs their
// attention.
type Notifier interface {
	Notify(title, message string) error
}

// Engine runs syncs of the personal and shared directories, and records
// their outcomes. It owns the StatusStore and ActivityLog.
type Engine struct {
	rclone   Rclone
	fs       afero.Fs
	status   *StatusStore
	activity *ActivityLog
	notifier Notifier
	log      *logrus.Logger

	// inFlight is held for the whole of SyncAll so that two syncs never run
	// rclone against the same directory at once.
	inFlight goSync.Mutex
}

// Option configures optional Engine dependencies.
type Option func(*Engine)

// WithFs sets the filesystem used to create the sync roots and their init
// markers.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) {
		e.fs = fs
	}
}

// WithClock sets the clock used to timestamp activity entries.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.activity = NewActivityLog(clock)
	}
}

// WithNotifier sets the Notifier that's told about conflicts and errors.
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates an Engine that runs syncs using `rc`.
func NewEngine(rc Rclone, opts ...Option) *Engine {
	e := &Engine{
		rclone:   rc,
		fs:       afero.NewOsFs(),
		status:   NewStatusStore(),
		activity: NewActivityLog(clockwork.NewRealClock()),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the current status.
func (e *Engine) Status() Status {
	return e.status.Get()
}

// Activity returns up to `limit` of the most recent activity entries, oldest
// first.
func (e *Engine) Activity(limit int) []ActivityEntry {
	return e.activity.Recent(limit)
}

// Reset returns the engine to the NotConfigured state, e.g. after logging
// out. The activity log is kept.
func (e *Engine) Reset() {
	e.status.Set(NotConfigured)
}

// Targets returns the directory pairs described by `cfg`, in the order they
// are synced.
func Targets(cfg config.User) []Target {
	return []Target{
		{Name: "personal", RemoteURL: cfg.PersonalWebDAVURL(), LocalPath: cfg.PersonalSyncPath},
		{Name: "shared", RemoteURL: cfg.SharedWebDAVURL(), LocalPath: cfg.SharedSyncPath},
	}
}

// SyncAll syncs the personal directory and then the shared directory.
//
// Failures of the individual directories are not returned. They're recorded
// in the activity log and reflected in the status, since a failed sync is part
// of normal operation. An error is only returned if the sync couldn't start:
// the config is incomplete, another sync is already running, or the token
// couldn't be obscured. In those cases neither the status nor the activity
// log is touched.
func (e *Engine) SyncAll(ctx context.Context, cfg config.User, token string) error {
	if !cfg.IsConfigured() {
		return errors.NotConfigured{Missing: cfg.MissingFields()}
	}

	if !e.inFlight.TryLock() {
		return errors.ErrSyncInProgress
	}
	defer e.inFlight.Unlock()

	obscured, err := e.rclone.Obscure(ctx, token)
	if err != nil {
		return errors.ToolObscureFailure{Err: err}
	}

	prev := e.status.Set(Syncing)

	var failures []error
	for _, target := range Targets(cfg) {
		err := e.syncTarget(ctx, target, cfg, obscured)
		if err != nil {
			e.log.WithError(err).WithField("target", target.Name).Error("Sync failed")
			e.activity.Record(target.Action(), "", ActivityError, err.Error())
			failures = append(failures, err)
		} else {
			e.activity.Record(target.Action(), "", ActivitySuccess, "")
		}
	}

	status := aggregate(failures)
	e.status.Set(status)
	e.notify(prev, status)
	return nil
}

func (e *Engine) syncTarget(ctx context.Context, target Target, cfg config.User, obscured string) error {
	if exists, _ := afero.DirExists(e.fs, target.LocalPath); !exists {
		if err := e.fs.MkdirAll(target.LocalPath, 0755); err != nil {
			return errors.DirectoryCreationFailure{Path: target.LocalPath, Err: err}
		}
	}
	return e.runBisync(ctx, target, cfg.UserEmail, obscured, cfg.MaxFileSizeBytes)
}

// aggregate decides the status after a sync from the per-target failures,
// which are in sync order. An ordinary error takes priority over a conflict,
// and the first target's error takes priority over the second's.
func aggregate(failures []error) Status {
	if len(failures) == 0 {
		return Idle
	}

	for _, err := range failures {
		if !isConflictFailure(err) {
			return Error(err.Error())
		}
	}
	return Conflict
}

func isConflictFailure(err error) bool {
	failure, ok := errors.RootCause(err).(errors.ToolExecutionFailure)
	return ok && failure.Conflict
}

func (e *Engine) notify(prev, next Status) {
	if e.notifier == nil || prev == next {
		return
	}

	var title string
	switch next.Phase {
	case PhaseConflict:
		title = "Sync conflict"
	case PhaseError:
		title = "Sync failed"
	default:
		return
	}

	msg := next.Message
	if msg == "" {
		msg = "Conflicting changes were found. The newer version of each file was kept."
	}
	if err := e.notifier.Notify(title, msg); err != nil {
		e.log.WithError(err).Debug("Failed to send notification")
	}
}
