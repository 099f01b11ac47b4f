package bugtool

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/api/client"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/rclone"
	"github.com/sidkik/davsync/pkg/sync"
	"github.com/sidkik/davsync/pkg/version"
)

// Mocked for unit testing.
var (
	fs                        = afero.NewOsFs()
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	newClient                 = client.New
	newRunner                 = rclone.NewRunner
)

// New creates a new `bug-tool` command.
func New() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "bug-tool",
		Short: "Generate an archive for debugging davsync",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), out); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path for archive")
	return cmd
}

func run(ctx context.Context, out string) (err error) {
	tmpdir, err := afero.TempDir(fs, "", "davsync-bug-tool")
	if err != nil {
		return errors.NewFriendlyError("Failed to create out directory:\n%s", err)
	}

	defer func() {
		if rmErr := fs.RemoveAll(tmpdir); rmErr != nil && err == nil {
			err = errors.WithContext(rmErr, "remove temp directory")
		}
	}()

	setupInfo(ctx, tmpdir)

	if out == "" {
		out = fmt.Sprintf("davsync-bug-info-%s.tar.gz",
			time.Now().Format("Jan_02_2006-15-04-05"))
	}
	if err := tarDirectory(tmpdir, out); err != nil {
		return errors.NewFriendlyError("Failed to tar:\n%s", err)
	}

	msg := `Created bug information archive at '%s'.
You may want to edit the archive before sharing it, since it contains file paths.
The archive contains:
 * The davsync config. Your token isn't included.
 * The status of the agent, and its recent activity.
 * The version of davsync and rclone.
`
	fmt.Fprintf(stdout, msg, out)
	return nil
}

func setupInfo(ctx context.Context, root string) {
	if err := setupConfig(root); err != nil {
		log.WithError(err).Warn("Failed to setup config")
	}

	userConfig, err := parseUserConfig()
	if err != nil {
		log.WithError(err).Error("Failed to parse user config")
		userConfig = config.Default()
	}

	if err := setupAgentState(ctx, root, userConfig); err != nil {
		log.WithError(err).Warn("Failed to setup agent state")
	}

	if err := setupVersion(ctx, root, userConfig); err != nil {
		log.WithError(err).Warn("Failed to setup version info")
	}
}

func setupConfig(root string) error {
	path, err := config.GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "get config path")
	}
	return copyFile(path, filepath.Join(root, "config.yaml"))
}

func setupAgentState(ctx context.Context, root string, userConfig config.User) error {
	c := newClient(userConfig.APIAddress)
	status, err := c.GetStatus(ctx)
	if err != nil {
		return errors.WithContext(err, "get status")
	}

	activity, err := c.GetActivity(ctx, sync.MaxActivityEntries)
	if err != nil {
		return errors.WithContext(err, "get activity")
	}

	if err := writeJSON(filepath.Join(root, "status.json"), status); err != nil {
		return err
	}
	return writeJSON(filepath.Join(root, "activity.json"), activity)
}

func setupVersion(ctx context.Context, root string, userConfig config.User) error {
	rcloneVersion := "unknown"
	v, err := rclone.New(newRunner(userConfig.RclonePath)).Version(ctx)
	if err == nil {
		rcloneVersion = v.String()
	} else {
		log.WithError(err).Debug("Failed to get rclone version")
	}

	contents := fmt.Sprintf("davsync: %s\nrclone: %s\nrclone path: %s\n",
		version.Version, rcloneVersion, userConfig.RclonePath)
	return afero.WriteFile(fs, filepath.Join(root, "version"), []byte(contents), 0644)
}

func writeJSON(path string, v interface{}) error {
	contents, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.WithContext(err, "copy")
	}
	return nil
}

func tarDirectory(src, outPath string) error {
	out, err := fs.Create(outPath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	return afero.Walk(fs, src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("make header %s", file))
		}

		relPath, err := filepath.Rel(src, file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("get relative path of %s to %s", file, src))
		}

		header.Name = filepath.Join("davsync-bug-info", relPath)
		if err := tw.WriteHeader(header); err != nil {
			return errors.WithContext(err, fmt.Sprintf("write %s header", file))
		}

		// Only write contents if it's a file (i.e. not a directory).
		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := fs.Open(file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("open %s", file))
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %s", file))
		}
		return nil
	})
}
