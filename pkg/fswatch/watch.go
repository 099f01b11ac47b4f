// Package fswatch detects changes to the local sync directories. It reports
// whether anything changed since it was last asked, rather than which files
// changed, since rclone works out the details itself.
package fswatch

import (
	"os"
	"path/filepath"
	goSync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

// DefaultPollInterval is how often the watched trees are rescanned when native
// events are unavailable.
const DefaultPollInterval = 2 * time.Second

var fs = afero.NewOsFs()

// Watcher watches directory trees for changes. Changes are detected through
// native filesystem events. If those are unavailable, the trees are rescanned
// periodically instead.
type Watcher struct {
	lock     goSync.Mutex
	watching bool
	changes  chan struct{}
	stop     chan struct{}
	native   *fsnotify.Watcher
	wg       goSync.WaitGroup

	clock         clockwork.Clock
	pollInterval  time.Duration
	nativeEnabled bool
	ignored       map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock sets the clock that drives the rescans.
func WithClock(clock clockwork.Clock) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// WithPollInterval sets how often the trees are rescanned when native events
// are unavailable.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		w.pollInterval = interval
	}
}

// WithoutNativeEvents disables fsnotify, so changes are only found by
// rescanning.
func WithoutNativeEvents() Option {
	return func(w *Watcher) {
		w.nativeEnabled = false
	}
}

// Ignore skips changes to files with any of the given base names.
func Ignore(names ...string) Option {
	return func(w *Watcher) {
		for _, name := range names {
			w.ignored[name] = struct{}{}
		}
	}
}

// New creates a stopped Watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		clock:         clockwork.NewRealClock(),
		pollInterval:  DefaultPollInterval,
		nativeEnabled: true,
		ignored:       map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching `paths` recursively. Paths that don't exist are
// skipped.
func (w *Watcher) Start(paths []string) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.watching {
		return errors.New("watcher already started")
	}

	var roots []string
	for _, path := range paths {
		if _, err := fs.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				log.WithError(err).WithField("path", path).Warn("Failed to stat watched path")
			}
			continue
		}
		roots = append(roots, path)
		log.WithField("path", path).Info("Watching directory")
	}

	changes := make(chan struct{}, 1)
	stop := make(chan struct{})

	if w.nativeEnabled {
		native, err := w.newNativeWatcher(roots)
		if err != nil {
			log.WithError(err).Warnf("Failed to watch files for changes. "+
				"Changes will be found by rescanning every %s instead.", w.pollInterval)
		} else {
			w.native = native
			w.wg.Add(1)
			go w.watchNative(native, stop, changes)
		}
	}

	// Rescanning alongside native events would report every change twice.
	if w.native == nil {
		// The ticker is created before returning so that ticks are never
		// missed by a goroutine that hasn't started yet.
		ticker := w.clock.NewTicker(w.pollInterval)
		baseline := w.snapshot(roots)
		w.wg.Add(1)
		go w.poll(roots, baseline, ticker, stop, changes)
	}

	w.changes = changes
	w.stop = stop
	w.watching = true
	return nil
}

// HasChanges returns whether anything changed since the watcher started or
// since the last call to HasChanges. It never blocks.
func (w *Watcher) HasChanges() bool {
	w.lock.Lock()
	changes := w.changes
	w.lock.Unlock()

	if changes == nil {
		return false
	}

	select {
	case <-changes:
		return true
	default:
		return false
	}
}

// IsWatching returns whether the watcher is started.
func (w *Watcher) IsWatching() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.watching
}

// Stop releases all watches and discards any pending changes. Stopping a
// stopped watcher does nothing.
func (w *Watcher) Stop() {
	w.lock.Lock()
	defer w.lock.Unlock()

	if !w.watching {
		return
	}

	close(w.stop)
	if w.native != nil {
		if err := w.native.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file watcher")
		}
	}
	w.wg.Wait()

	w.native = nil
	w.changes = nil
	w.stop = nil
	w.watching = false
}

func (w *Watcher) newNativeWatcher(roots []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, root := range roots {
		if err := addRecursive(watcher, root); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}
			return nil, errors.WithContext(err, "watch "+root)
		}
	}
	return watcher, nil
}

// addRecursive watches `root` and all directories below it, since fsnotify
// doesn't watch directories recursively.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return errors.WithContext(err, "walk error")
			}
			return nil
		}

		if !fi.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}

func (w *Watcher) watchNative(watcher *fsnotify.Watcher, stop <-chan struct{},
	changes chan<- struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if w.isIgnored(event.Name) {
				continue
			}

			// Start watching new directories so that changes within them
			// are noticed too.
			if event.Has(fsnotify.Create) {
				if fi, err := fs.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						log.WithError(err).WithField("path", event.Name).Warn(
							"Failed to watch new directory")
					}
				}
			}

			log.WithField("path", event.Name).Debugf("File change detected: %s", event.Op)
			signal(changes)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("File watcher error")
		}
	}
}

func (w *Watcher) poll(roots []string, prev snapshot, ticker clockwork.Ticker,
	stop <-chan struct{}, changes chan<- struct{}) {
	defer w.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			curr := w.snapshot(roots)
			if !curr.equal(prev) {
				log.Debug("File change detected by rescan")
				signal(changes)
			}
			prev = curr
		}
	}
}

// signal records that a change happened. Changes that happen before the
// previous one is read are combined into it.
func signal(changes chan<- struct{}) {
	select {
	case changes <- struct{}{}:
	default:
	}
}

func (w *Watcher) isIgnored(path string) bool {
	_, ok := w.ignored[filepath.Base(path)]
	return ok
}

type fileState struct {
	size    int64
	modTime time.Time
	isDir   bool
}

type snapshot map[string]fileState

func (w *Watcher) snapshot(roots []string) snapshot {
	snap := snapshot{}
	for _, root := range roots {
		// Errors are ignored since files may be removed while we walk. The
		// next rescan will pick up the difference.
		_ = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
			if err != nil || w.isIgnored(path) {
				return nil
			}
			snap[path] = fileState{
				size:    fi.Size(),
				modTime: fi.ModTime(),
				isDir:   fi.IsDir(),
			}
			return nil
		})
	}
	return snap
}

func (snap snapshot) equal(other snapshot) bool {
	if len(snap) != len(other) {
		return false
	}
	for path, state := range snap {
		otherState, ok := other[path]
		if !ok || !state.modTime.Equal(otherState.modTime) ||
			state.size != otherState.size || state.isDir != otherState.isDir {
			return false
		}
	}
	return true
}
