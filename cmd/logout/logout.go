package logout

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/credentials"
	"github.com/sidkik/davsync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout          io.Writer         = os.Stdout
	tokenStore      credentials.Store = credentials.NewKeyringStore()
	parseUserConfig                   = config.ParseUser
	writeUserConfig                   = config.WriteUser
	promptYesOrNo                     = util.PromptYesOrNo
)

// New creates a new `logout` command.
func New() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the stored token",
		Long: "Log out of the document server. The stored token is removed, and " +
			"the agent stops syncing. Local files are left in place.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(yes); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "don't ask for confirmation")
	return cmd
}

func run(yes bool) error {
	cfg, err := parseUserConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	if cfg.UserEmail == "" {
		fmt.Fprintln(stdout, "Not logged in.")
		return nil
	}

	if !yes {
		confirmed, err := promptYesOrNo(fmt.Sprintf(
			"Log out %s? The agent will stop syncing.", cfg.UserEmail))
		if err != nil {
			return errors.WithContext(err, "prompt")
		}
		if !confirmed {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	if err := tokenStore.Delete(cfg.UserEmail); err != nil {
		return errors.WithContext(err, "remove token")
	}

	email := cfg.UserEmail
	cfg.ServerURL = ""
	cfg.UserEmail = ""
	cfg.TenantID = ""
	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Logged out %s.\n", email)
	return nil
}
