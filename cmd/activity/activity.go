package activity

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/api"
	"github.com/sidkik/davsync/pkg/api/client"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	newClient                 = client.New
)

// New creates a new `activity` command.
func New() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Print the most recent sync activity",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), limit); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultActivityLimit,
		"The maximum number of entries to print.")
	return cmd
}

func run(ctx context.Context, limit int) error {
	if limit <= 0 {
		return errors.NewFriendlyError("The limit must be positive.")
	}

	cfg, err := parseUserConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	entries, err := newClient(cfg.APIAddress).GetActivity(ctx, limit)
	if err != nil {
		return errors.WithContext(err, "get activity")
	}
	return util.PrintActivity(stdout, entries)
}
