// Package scheduler decides when the agent syncs: on startup, on a fixed
// interval, and soon after local changes.
package scheduler

import (
	"context"
	goSync "sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultWatchInterval is how often the change source is checked.
const DefaultWatchInterval = 2 * time.Second

// The reasons passed to the SyncFunc.
const (
	ReasonStartup  = "startup"
	ReasonInterval = "interval"
	ReasonWatcher  = "watcher"
)

// SyncFunc runs a sync. It's called with the reason for the sync.
type SyncFunc func(ctx context.Context, reason string)

// ChangeSource reports whether local files changed since it was last asked.
type ChangeSource interface {
	HasChanges() bool
}

// Options configures when syncs are triggered.
type Options struct {
	// Interval is the time between periodic syncs. Periodic syncs are
	// disabled if it's zero.
	Interval time.Duration

	// SyncOnStartup triggers a sync as soon as the scheduler starts.
	SyncOnStartup bool

	// Changes triggers a sync when it reports changes. It's ignored if nil.
	Changes       ChangeSource
	WatchInterval time.Duration

	Clock clockwork.Clock
}

// Scheduler triggers syncs. Triggers from different sources may overlap, so
// the SyncFunc must handle being called while a sync is already running.
type Scheduler struct {
	sync SyncFunc
	opts Options

	lock    goSync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      goSync.WaitGroup
	running bool
}

// New creates a stopped Scheduler.
func New(sync SyncFunc, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.WatchInterval == 0 {
		opts.WatchInterval = DefaultWatchInterval
	}
	return &Scheduler{sync: sync, opts: opts}
}

// Start begins triggering syncs. The syncs are passed a context that's
// cancelled when `ctx` is done or the scheduler is stopped.
func (s *Scheduler) Start(ctx context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	if s.opts.Interval > 0 {
		logger := cron.PrintfLogger(log.StandardLogger())
		s.cron = cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
		s.cron.Schedule(cron.Every(s.opts.Interval), cron.FuncJob(func() {
			s.sync(ctx, ReasonInterval)
		}))
		s.cron.Start()
		log.WithField("interval", s.opts.Interval).Debug("Scheduled periodic sync")
	}

	if s.opts.Changes != nil {
		ticker := s.opts.Clock.NewTicker(s.opts.WatchInterval)
		s.wg.Add(1)
		go s.watchChanges(ctx, ticker)
	}

	if s.opts.SyncOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sync(ctx, ReasonStartup)
		}()
	}
}

// Stop stops triggering syncs, and waits for any syncs it triggered to
// return.
func (s *Scheduler) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.wg.Wait()
	s.running = false
}

func (s *Scheduler) watchChanges(ctx context.Context, ticker clockwork.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if s.opts.Changes.HasChanges() {
				log.Debug("Local changes detected. Triggering sync.")
				s.sync(ctx, ReasonWatcher)
			}
		}
	}
}
