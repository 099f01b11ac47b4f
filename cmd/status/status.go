package status

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
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

// New creates a new `status` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the status of the sync agent",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := parseUserConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	status, err := newClient(cfg.APIAddress).GetStatus(ctx)
	if err != nil {
		return errors.WithContext(err, "get status")
	}

	if cfg.IsConfigured() {
		fmt.Fprintf(stdout, "Account:  %s (%s)\n", cfg.UserEmail, cfg.ServerURL)
		fmt.Fprintf(stdout, "Personal: %s\n", cfg.PersonalSyncPath)
		fmt.Fprintf(stdout, "Shared:   %s\n\n", cfg.SharedSyncPath)
	}
	fmt.Fprintln(stdout, util.FormatStatus(status))
	return nil
}
