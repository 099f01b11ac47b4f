package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/activity"
	"github.com/sidkik/davsync/cmd/agent"
	"github.com/sidkik/davsync/cmd/autostart"
	"github.com/sidkik/davsync/cmd/bugtool"
	configCmd "github.com/sidkik/davsync/cmd/config"
	"github.com/sidkik/davsync/cmd/login"
	"github.com/sidkik/davsync/cmd/logout"
	"github.com/sidkik/davsync/cmd/status"
	syncCmd "github.com/sidkik/davsync/cmd/sync"
	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "DAVSYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:   "davsync",
		Short: "Keep local folders in sync with a WebDAV server",
		Long: "davsync mirrors a personal and a shared folder with the matching " +
			"folders on a WebDAV server, in both directions.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		activity.New(),
		agent.New(),
		autostart.New(),
		bugtool.New(),
		configCmd.New(),
		login.New(),
		logout.New(),
		status.New(),
		syncCmd.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
