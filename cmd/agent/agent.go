package agent

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/agent"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/credentials"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/notify"
	"github.com/sidkik/davsync/pkg/rclone"
	"github.com/sidkik/davsync/pkg/sync"
	"github.com/sidkik/davsync/pkg/version"
)

// New creates a new `agent` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the background sync agent",
		Long: "Run the background sync agent. It syncs on startup, on a schedule, and " +
			"whenever local files change, and serves its status to the other commands.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.ParseUser()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	rc := rclone.New(rclone.NewRunner(cfg.RclonePath))
	rcloneVersion, err := rc.CheckVersion(ctx)
	if err != nil {
		return errors.WithContext(err, "check rclone")
	}

	log.WithFields(log.Fields{
		"version": version.Version,
		"rclone":  rcloneVersion.String(),
	}).Info("Starting agent")

	if !cfg.IsConfigured() {
		log.Warn("Not logged in yet. Syncing will start after `davsync login`.")
	}

	engine := sync.NewEngine(rc, sync.WithNotifier(notify.Desktop{}))
	a := agent.New(engine, credentials.NewKeyringStore(), clockwork.NewRealClock())
	return a.Run(ctx, cfg)
}
