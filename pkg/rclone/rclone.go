// Package rclone wraps the rclone subcommands used by davsync. Credentials
// are handed to rclone through its backend environment variables, so that
// they never show up in the process list.
package rclone

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/sidkik/davsync/pkg/errors"
)

const (
	// RemoteAlias is the on-the-fly WebDAV remote. Its options are read from
	// the RCLONE_WEBDAV_* environment variables.
	RemoteAlias = ":webdav:"

	envURL  = "RCLONE_WEBDAV_URL"
	envUser = "RCLONE_WEBDAV_USER"
	envPass = "RCLONE_WEBDAV_PASS"
)

// MinimumVersion is the oldest rclone release that supports all the bisync
// flags we pass (--resilient, --recover and --conflict-resolve).
var MinimumVersion = version.Must(version.NewVersion("1.66.0"))

// BisyncOptions describes one bidirectional sync between a WebDAV remote and
// a local directory.
type BisyncOptions struct {
	RemoteURL string
	LocalPath string
	Username  string

	// ObscuredPassword must already be in rclone's obscured form.
	ObscuredPassword string

	// Resync requests a full baseline sync. It's required the first time a
	// directory is synced. Otherwise the run recovers from any interrupted
	// previous run.
	Resync bool

	// MaxFileSizeBytes skips files larger than this. Zero means no limit.
	MaxFileSizeBytes int64
}

// Args returns the rclone arguments for the sync. Credentials are never
// included.
func (opts BisyncOptions) Args() []string {
	args := []string{
		"bisync",
		RemoteAlias,
		opts.LocalPath,
		"--create-empty-src-dirs",
		"--resilient",
		"--conflict-resolve=newer",
		"--verbose",
	}
	if opts.Resync {
		args = append(args, "--resync")
	} else {
		args = append(args, "--recover")
	}
	if opts.MaxFileSizeBytes > 0 {
		args = append(args, fmt.Sprintf("--max-size=%dB", opts.MaxFileSizeBytes))
	}
	return args
}

// Env returns the environment that configures the WebDAV remote.
func (opts BisyncOptions) Env() map[string]string {
	return map[string]string{
		envURL:  opts.RemoteURL,
		envUser: opts.Username,
		envPass: opts.ObscuredPassword,
	}
}

// Client runs rclone subcommands.
type Client struct {
	runner Runner
}

// New creates a Client that uses `runner` to execute rclone.
func New(runner Runner) Client {
	return Client{runner: runner}
}

// Obscure converts `secret` into the obscured form rclone expects in its
// config and environment.
func (c Client) Obscure(ctx context.Context, secret string) (string, error) {
	res, err := c.runner.Run(ctx, []string{"obscure", secret}, nil)
	if err != nil {
		return "", errors.ToolInvocationFailure{Command: "rclone obscure", Err: err}
	}

	if !res.Success() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exited with code %d", res.ExitCode)
		}
		return "", errors.New("rclone obscure: %s", msg)
	}
	return strings.TrimRight(res.Stdout, " \t\r\n"), nil
}

// Bisync runs a bidirectional sync. The returned error is only set if rclone
// couldn't be started; a failed sync is reported through the Result.
func (c Client) Bisync(ctx context.Context, opts BisyncOptions) (Result, error) {
	res, err := c.runner.Run(ctx, opts.Args(), opts.Env())
	if err != nil {
		return res, errors.ToolInvocationFailure{Command: "rclone bisync", Err: err}
	}
	return res, nil
}

// Version returns the version of the rclone binary.
func (c Client) Version(ctx context.Context) (*version.Version, error) {
	res, err := c.runner.Run(ctx, []string{"version"}, nil)
	if err != nil {
		return nil, errors.ToolInvocationFailure{Command: "rclone version", Err: err}
	}
	if !res.Success() {
		return nil, errors.New("rclone version exited with code %d", res.ExitCode)
	}
	return parseVersion(res.Stdout)
}

// CheckVersion returns a friendly error if rclone is too old to run bisync
// with the flags we need.
func (c Client) CheckVersion(ctx context.Context) (*version.Version, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}

	if v.LessThan(MinimumVersion) {
		return v, errors.NewFriendlyError("rclone %s is too old. "+
			"davsync requires rclone %s or newer.\n"+
			"See https://rclone.org/downloads/ for how to upgrade.",
			v, MinimumVersion)
	}
	return v, nil
}

// parseVersion parses the first line of `rclone version`, which looks like
// "rclone v1.66.0".
func parseVersion(output string) (*version.Version, error) {
	firstLine := strings.SplitN(strings.TrimSpace(output), "\n", 2)[0]
	fields := strings.Fields(firstLine)
	if len(fields) < 2 || fields[0] != "rclone" {
		return nil, errors.New("unexpected rclone version output: %q", firstLine)
	}

	v, err := version.NewVersion(fields[1])
	if err != nil {
		return nil, errors.WithContext(err, "parse rclone version")
	}
	return v, nil
}
