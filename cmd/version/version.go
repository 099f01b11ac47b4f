package version

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/rclone"
	"github.com/sidkik/davsync/pkg/version"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	newRunner                 = rclone.NewRunner
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of davsync and rclone.",
		Long: "Print the local version of davsync, and the version of the rclone\n" +
			"binary that it syncs with.",
		Run: func(_ *cobra.Command, args []string) {
			if err := run(context.Background()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(ctx context.Context) error {
	fmt.Fprintf(stdout, "local version:  %s\n", version.Version)

	rclonePath := config.Default().RclonePath
	if cfg, err := parseUserConfig(); err == nil {
		rclonePath = cfg.RclonePath
	} else {
		log.WithError(err).Debugf("Failed to read %s. Using the default rclone path.",
			config.UserConfigPath)
	}

	rcloneVersion, err := rclone.New(newRunner(rclonePath)).Version(ctx)
	if err != nil {
		return errors.WithContext(err, "get rclone version")
	}

	fmt.Fprintf(stdout, "rclone version: %s", rcloneVersion)
	if rcloneVersion.LessThan(rclone.MinimumVersion) {
		fmt.Fprintf(stdout, " (unsupported, %s or newer is required)", rclone.MinimumVersion)
	}
	fmt.Fprintln(stdout)
	return nil
}
