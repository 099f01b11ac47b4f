// Package agent runs the background sync agent. It owns the sync engine and
// decides when to sync, and serves the status and activity to the CLI.
package agent

import (
	"context"
	"slices"
	goSync "sync"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/api/server"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/credentials"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/fswatch"
	"github.com/sidkik/davsync/pkg/scheduler"
	"github.com/sidkik/davsync/pkg/sync"
)

// Mocked for unit testing.
var (
	parseConfig = config.ParseUser
	fs          = afero.NewOsFs()
	runServer   = server.Run
	newWatcher  = func() changeWatcher {
		return fswatch.New(fswatch.Ignore(sync.InitMarkerName))
	}
)

// changeWatcher is the subset of fswatch.Watcher used by the agent.
type changeWatcher interface {
	Start(paths []string) error
	Stop()
	IsWatching() bool
	HasChanges() bool
}

// Agent syncs the user's directories when asked, and on its own schedule
// once Run is called.
type Agent struct {
	engine *sync.Engine
	tokens credentials.Store
	clock  clockwork.Clock

	// watcher is only set while Run is watching for local changes.
	watchLock    goSync.Mutex
	watcher      changeWatcher
	watchedRoots []string
}

// New creates an Agent.
func New(engine *sync.Engine, tokens credentials.Store, clock clockwork.Clock) *Agent {
	return &Agent{engine: engine, tokens: tokens, clock: clock}
}

// GetStatus returns the current sync status.
func (a *Agent) GetStatus() sync.Status {
	return a.engine.Status()
}

// GetActivity returns up to `limit` of the most recent activity entries,
// oldest first.
func (a *Agent) GetActivity(limit int) []sync.ActivityEntry {
	return a.engine.Activity(limit)
}

// TriggerSync syncs both directories with the latest config and the stored
// token. It returns once the sync completes.
func (a *Agent) TriggerSync(ctx context.Context) error {
	cfg, err := parseConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	// The account may have been logged out since the last sync.
	if !cfg.IsConfigured() {
		a.engine.Reset()
		return errors.NotConfigured{Missing: cfg.MissingFields()}
	}

	// The account may have been configured after the agent started.
	a.watch(cfg)

	token, err := a.tokens.Get(cfg.UserEmail)
	if err != nil {
		return errors.WithContext(err, "load token")
	}

	if token.IsExpired(a.clock.Now()) {
		return errors.TokenExpired{User: cfg.UserEmail}
	}

	return a.engine.SyncAll(ctx, cfg, token.Token)
}

// Run watches for changes, syncs on schedule and serves the local API until
// `ctx` is cancelled.
func (a *Agent) Run(ctx context.Context, cfg config.User) error {
	if cfg.IsConfigured() {
		createRoots(cfg)
	}

	var changes scheduler.ChangeSource
	if cfg.WatchLocalChanges {
		watcher := newWatcher()
		a.watchLock.Lock()
		a.watcher = watcher
		a.watchLock.Unlock()
		defer a.stopWatching()

		a.watch(cfg)
		changes = watcher
	}

	sched := scheduler.New(a.scheduledSync, scheduler.Options{
		Interval:      cfg.SyncInterval(),
		SyncOnStartup: cfg.SyncOnStartup,
		Changes:       changes,
		Clock:         a.clock,
	})
	sched.Start(ctx)
	defer sched.Stop()

	log.WithFields(log.Fields{
		"personal": cfg.PersonalSyncPath,
		"shared":   cfg.SharedSyncPath,
		"interval": cfg.SyncInterval(),
	}).Info("Agent started")

	if err := runServer(ctx, cfg.APIAddress, a); err != nil {
		return errors.WithContext(err, "serve api")
	}
	return nil
}

// watch starts watching the sync roots of `cfg`, or moves the watch if the
// roots changed. Nothing is watched until the account is configured, since
// the roots aren't created before then.
func (a *Agent) watch(cfg config.User) {
	a.watchLock.Lock()
	defer a.watchLock.Unlock()

	if a.watcher == nil || !cfg.IsConfigured() {
		return
	}

	roots := []string{cfg.PersonalSyncPath, cfg.SharedSyncPath}
	if a.watcher.IsWatching() {
		if slices.Equal(roots, a.watchedRoots) {
			return
		}
		a.watcher.Stop()
	}

	// Start skips missing paths, so the roots must exist first.
	createRoots(cfg)
	if err := a.watcher.Start(roots); err != nil {
		log.WithError(err).Warn("Failed to watch for local changes")
		return
	}
	a.watchedRoots = roots
}

func (a *Agent) stopWatching() {
	a.watchLock.Lock()
	defer a.watchLock.Unlock()

	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.watcher = nil
	a.watchedRoots = nil
}

func createRoots(cfg config.User) {
	for _, root := range []string{cfg.PersonalSyncPath, cfg.SharedSyncPath} {
		if err := fs.MkdirAll(root, 0755); err != nil {
			log.WithError(err).WithField("path", root).Warn("Failed to create sync directory")
		}
	}
}

func (a *Agent) scheduledSync(ctx context.Context, reason string) {
	logger := log.WithField("reason", reason)
	logger.Debug("Starting scheduled sync")

	err := a.TriggerSync(ctx)
	switch errors.RootCause(err).(type) {
	case nil:
		logger.WithField("status", a.GetStatus()).Info("Sync finished")
	case errors.NotConfigured:
		logger.Debug("Skipping sync. Not configured yet.")
	default:
		if errors.RootCause(err) == errors.ErrSyncInProgress {
			logger.Debug("Skipping sync. Another sync is running.")
			return
		}
		logger.WithError(err).Warn("Sync didn't run")
	}
}
