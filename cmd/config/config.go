package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	stdin           io.Reader = os.Stdin
	parseUserConfig           = config.ParseUser
	writeUserConfig           = config.WriteUser
)

// options are the settings given as flags. Prompted settings are empty when
// the flag isn't set, and the others are nil.
type options struct {
	personalPath, sharedPath, interval string

	watch, syncOnStartup   *bool
	maxFileSize            *int64
	rclonePath, apiAddress string
}

// New creates a new `config` command.
func New() *cobra.Command {
	var opts options
	var watch, syncOnStartup bool
	var maxFileSize int64

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the davsync sync directories and schedule",
		Long: "Setup the davsync sync directories and schedule.\n\n" +
			"Settings that aren't passed as flags are prompted for. " +
			"The server and account are set by `davsync login`.",
		Run: func(cmd *cobra.Command, _ []string) {
			if cmd.Flags().Changed("watch") {
				opts.watch = &watch
			}
			if cmd.Flags().Changed("sync-on-startup") {
				opts.syncOnStartup = &syncOnStartup
			}
			if cmd.Flags().Changed("max-file-size") {
				opts.maxFileSize = &maxFileSize
			}

			if err := SetupConfig(opts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&opts.personalPath, "personal-path", "",
		"Set the local directory that mirrors your personal files. "+
			"Optional: If not set, `davsync config` will interactively prompt.")
	cmd.Flags().StringVar(&opts.sharedPath, "shared-path", "",
		"Set the local directory that mirrors the files shared with you. "+
			"Optional: If not set, `davsync config` will interactively prompt.")
	cmd.Flags().StringVar(&opts.interval, "interval", "",
		"Set the number of seconds between scheduled syncs. "+
			"Optional: If not set, `davsync config` will interactively prompt.")
	cmd.Flags().BoolVar(&watch, "watch", true,
		"Sync soon after local files change, rather than waiting for the next scheduled sync.")
	cmd.Flags().BoolVar(&syncOnStartup, "sync-on-startup", true,
		"Sync as soon as the agent starts.")
	cmd.Flags().Int64Var(&maxFileSize, "max-file-size", 0,
		"Skip files larger than this many bytes. 0 means no limit.")
	cmd.Flags().StringVar(&opts.rclonePath, "rclone-path", "",
		"Set the path to the rclone binary.")
	cmd.Flags().StringVar(&opts.apiAddress, "api-address", "",
		"Set the loopback address that the agent listens on.")

	// Setup the commands for querying the contents of the user config.
	type getterSpec struct {
		use, short string
		fn         func(config.User) string
	}

	getters := []getterSpec{
		{
			use:   "get-server",
			short: "Get the currently configured server URL",
			fn:    func(cfg config.User) string { return cfg.ServerURL },
		},
		{
			use:   "get-user",
			short: "Get the currently configured account",
			fn:    func(cfg config.User) string { return cfg.UserEmail },
		},
		{
			use:   "get-personal-path",
			short: "Get the local directory of the personal files",
			fn:    func(cfg config.User) string { return cfg.PersonalSyncPath },
		},
		{
			use:   "get-shared-path",
			short: "Get the local directory of the shared files",
			fn:    func(cfg config.User) string { return cfg.SharedSyncPath },
		},
		{
			use:   "get-interval",
			short: "Get the number of seconds between scheduled syncs",
			fn:    func(cfg config.User) string { return strconv.Itoa(cfg.SyncIntervalSeconds) },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseUserConfig()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig updates the user config with the given options, prompting for
// any that are missing.
func SetupConfig(opts options) error {
	cfg, err := generateConfig(opts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if _, err := config.Resolve(cfg); err != nil {
		return err
	}

	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := config.GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "get user config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	fmt.Fprintln(stdout, "Restart the agent for the changes to take effect.")
	return nil
}

func intervalValidationFn(interval string) (string, bool) {
	seconds, err := strconv.Atoi(interval)
	if err != nil || seconds <= 0 {
		return "The interval must be a positive number of seconds.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is. Settings that aren't part of `opts` are kept from the
// current config.
func generateConfig(opts options) (config.User, error) {
	defaults := config.Default()
	currConfig, err := parseUserConfig()
	if err != nil {
		currConfig = defaults
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := currConfig
	var prompts []prompt
	if opts.personalPath == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the local directory for your personal files.\n" +
				"It's created if it doesn't exist.",
			prompt:        "Personal directory",
			defaultAnswer: defaults.PersonalSyncPath,
			currAnswer:    currConfig.PersonalSyncPath,
			field:         &opts.personalPath,
		})
	}

	if opts.sharedPath == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the local directory for the files shared with you.\n" +
				"It must be different from the personal directory.",
			prompt:        "Shared directory",
			defaultAnswer: defaults.SharedSyncPath,
			currAnswer:    currConfig.SharedSyncPath,
			field:         &opts.sharedPath,
		})
	}

	if opts.interval == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter how often to sync, in seconds.\n" +
				"Local changes are also synced as soon as they're noticed.",
			prompt:        "Sync interval",
			defaultAnswer: strconv.Itoa(defaults.SyncIntervalSeconds),
			currAnswer:    strconv.Itoa(currConfig.SyncIntervalSeconds),
			field:         &opts.interval,
			validationFn:  intervalValidationFn,
		})
	} else if msg, ok := intervalValidationFn(opts.interval); !ok {
		return config.User{}, errors.NewFriendlyError(msg)
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.User{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	cfg.PersonalSyncPath = opts.personalPath
	cfg.SharedSyncPath = opts.sharedPath
	// The interval was validated above.
	cfg.SyncIntervalSeconds, _ = strconv.Atoi(opts.interval)

	if opts.watch != nil {
		cfg.WatchLocalChanges = *opts.watch
	}
	if opts.syncOnStartup != nil {
		cfg.SyncOnStartup = *opts.syncOnStartup
	}
	if opts.maxFileSize != nil {
		cfg.MaxFileSizeBytes = *opts.maxFileSize
	}
	if opts.rclonePath != "" {
		cfg.RclonePath = opts.rclonePath
	}
	if opts.apiAddress != "" {
		cfg.APIAddress = opts.apiAddress
	}
	return cfg, nil
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimSpace(choiceStr)

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil && (err != io.EOF || resp == "") {
		return "", err
	}

	return strings.TrimSpace(resp), nil
}
