package sync

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/rclone"
)

// InitMarkerName is the file written into a sync root after its first
// successful sync. Until it exists, syncs of the root run in resync mode.
const InitMarkerName = ".sync-init"

// Target is one of the directory pairs kept in sync.
type Target struct {
	// Name is "personal" or "shared".
	Name      string
	RemoteURL string
	LocalPath string
}

// Action is the name recorded in the activity log for syncs of the target.
func (t Target) Action() string {
	return "sync_" + t.Name
}

func markerPath(localPath string) string {
	return filepath.Join(localPath, InitMarkerName)
}

// runBisync runs a single bidirectional sync of `target`. It never holds a
// lock while rclone runs.
func (e *Engine) runBisync(ctx context.Context, target Target, username,
	obscuredPassword string, maxFileSize int64) error {

	log := e.log.WithField("target", target.Name)
	marker := markerPath(target.LocalPath)

	isFirstRun := true
	if exists, err := afero.Exists(e.fs, marker); err != nil {
		log.WithError(err).Warn("Failed to check for init marker. Running a full resync")
	} else {
		isFirstRun = !exists
	}

	opts := rclone.BisyncOptions{
		RemoteURL:        target.RemoteURL,
		LocalPath:        target.LocalPath,
		Username:         username,
		ObscuredPassword: obscuredPassword,
		Resync:           isFirstRun,
		MaxFileSizeBytes: maxFileSize,
	}

	log.WithField("resync", isFirstRun).Infof("Running rclone bisync for %s", target.RemoteURL)
	res, err := e.rclone.Bisync(ctx, opts)
	if err != nil {
		return err
	}

	log.Debugf("rclone stdout: %s", res.Stdout)
	if res.Stderr != "" {
		log.Warnf("rclone stderr: %s", res.Stderr)
	}

	if !res.Success() {
		failure := errors.ToolExecutionFailure{
			ExitCode: res.ExitCode,
			Output:   strings.TrimRight(res.Stderr, " \t\r\n"),
		}
		if IsConflict(failure.Error()) {
			failure.Conflict = true

			// Publish the conflict right away so that anyone checking the
			// status while the other target syncs already sees it.
			e.status.Set(Conflict)
		}
		return failure
	}

	if isFirstRun {
		// If the marker can't be written, the next sync just does another
		// resync, which is safe.
		if err := afero.WriteFile(e.fs, marker, []byte("initialized"), 0644); err != nil {
			log.WithError(err).Warn("Failed to write init marker")
		}
	}
	return nil
}
