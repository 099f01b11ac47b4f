package sync

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/agent"
	"github.com/sidkik/davsync/pkg/api/client"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/credentials"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/rclone"
	"github.com/sidkik/davsync/pkg/sync"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	newClient                 = client.New
)

// syncer is what runs the sync: either the agent over its API, or an
// in-process agent.
type syncer interface {
	TriggerSync(ctx context.Context) error
	GetStatus(ctx context.Context) (sync.Status, error)
	GetActivity(ctx context.Context, limit int) ([]sync.ActivityEntry, error)
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the personal and shared directories now",
		Long: "Sync the personal and shared directories now, and wait for the sync " +
			"to finish. By default the running agent performs the sync.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), local); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&local, "local", false,
		"Sync in this process rather than asking the agent. "+
			"Use this when the agent isn't running.")
	return cmd
}

func run(ctx context.Context, local bool) error {
	cfg, err := parseUserConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	var s syncer
	if local {
		s = newLocalSyncer(cfg)
	} else {
		s = newClient(cfg.APIAddress)
	}

	fmt.Fprintln(stdout, "Syncing..")
	if err := s.TriggerSync(ctx); err != nil {
		if errors.RootCause(err) == errors.ErrSyncInProgress {
			return errors.NewFriendlyError("A sync is already running. " +
				"Check its progress with `davsync status`.")
		}
		return err
	}

	status, err := s.GetStatus(ctx)
	if err != nil {
		return errors.WithContext(err, "get status")
	}

	// One entry is recorded for each directory.
	entries, err := s.GetActivity(ctx, len(sync.Targets(cfg)))
	if err != nil {
		return errors.WithContext(err, "get activity")
	}

	if err := util.PrintActivity(stdout, entries); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, util.FormatStatus(status))
	return nil
}

// localSyncer runs a one-off sync without the agent.
type localSyncer struct {
	agent *agent.Agent
}

func newLocalSyncer(cfg config.User) localSyncer {
	engine := sync.NewEngine(rclone.New(rclone.NewRunner(cfg.RclonePath)))
	return localSyncer{agent.New(engine, credentials.NewKeyringStore(), clockwork.NewRealClock())}
}

func (s localSyncer) TriggerSync(ctx context.Context) error {
	return s.agent.TriggerSync(ctx)
}

func (s localSyncer) GetStatus(context.Context) (sync.Status, error) {
	return s.agent.GetStatus(), nil
}

func (s localSyncer) GetActivity(_ context.Context, limit int) ([]sync.ActivityEntry, error) {
	return s.agent.GetActivity(limit), nil
}
