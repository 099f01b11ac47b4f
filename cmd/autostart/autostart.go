package autostart

import (
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-autostart"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/errors"
)

const appName = "davsync"

// launcher is implemented by *autostart.App.
type launcher interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	executable           = os.Executable
	newApp               = func(exec []string) launcher {
		return &autostart.App{
			Name:        appName,
			DisplayName: "DavSync agent",
			Exec:        exec,
		}
	}
)

// New creates a new `autostart` command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage whether the agent starts when you log in",
		Run: func(_ *cobra.Command, _ []string) {
			if err := printStatus(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Start the agent when you log in",
		Run: func(_ *cobra.Command, _ []string) {
			if err := setEnabled(true); err != nil {
				util.HandleFatalError(err)
			}
		},
	}, &cobra.Command{
		Use:   "disable",
		Short: "Stop starting the agent when you log in",
		Run: func(_ *cobra.Command, _ []string) {
			if err := setEnabled(false); err != nil {
				util.HandleFatalError(err)
			}
		},
	})
	return cmd
}

func getApp() (launcher, error) {
	path, err := executable()
	if err != nil {
		return nil, errors.WithContext(err, "find davsync binary")
	}
	return newApp([]string{path, "agent"}), nil
}

func printStatus() error {
	app, err := getApp()
	if err != nil {
		return err
	}

	if app.IsEnabled() {
		fmt.Fprintln(stdout, "The agent starts when you log in.")
	} else {
		fmt.Fprintln(stdout, "The agent doesn't start when you log in.\n"+
			"Run `davsync autostart enable` to change this.")
	}
	return nil
}

func setEnabled(enabled bool) error {
	app, err := getApp()
	if err != nil {
		return err
	}

	if app.IsEnabled() == enabled {
		return printStatus()
	}

	if enabled {
		err = app.Enable()
	} else {
		err = app.Disable()
	}
	if err != nil {
		return errors.WithContext(err, "update login items")
	}
	return printStatus()
}
