package errors

import (
	"fmt"
	"strings"
)

// ErrSyncInProgress is returned when a sync is requested while another one
// is still running.
var ErrSyncInProgress = New("a sync is already in progress")

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// NotConfigured is returned when a sync is requested before the server URL
// and user identity are known.
type NotConfigured struct {
	Missing []string
}

func (err NotConfigured) Error() string {
	return fmt.Sprintf("not configured: missing %s", strings.Join(err.Missing, ", "))
}

// FriendlyMessage implements Friendly.
func (err NotConfigured) FriendlyMessage() string {
	return "davsync is not configured yet.\n" +
		"Please run `davsync login` to set the server and account."
}

// NotLoggedIn is returned when no token is stored for the configured user.
type NotLoggedIn struct {
	User string
}

func (err NotLoggedIn) Error() string {
	return fmt.Sprintf("no stored token for %s", err.User)
}

// FriendlyMessage implements Friendly.
func (err NotLoggedIn) FriendlyMessage() string {
	return fmt.Sprintf("Not logged in as %s.\n"+
		"Please run `davsync login` again.", err.User)
}

// TokenExpired is returned when the stored token is past its expiry.
type TokenExpired struct {
	User string
}

func (err TokenExpired) Error() string {
	return fmt.Sprintf("token for %s has expired", err.User)
}

// FriendlyMessage implements Friendly.
func (err TokenExpired) FriendlyMessage() string {
	return fmt.Sprintf("The session for %s has expired.\n"+
		"Please run `davsync login` again.", err.User)
}

// DirectoryCreationFailure is returned when a local sync root can't be
// created.
type DirectoryCreationFailure struct {
	Path string
	Err  error
}

func (err DirectoryCreationFailure) Error() string {
	return fmt.Sprintf("create directory %q: %s", err.Path, err.Err)
}

func (err DirectoryCreationFailure) Unwrap() error {
	return err.Err
}

// ToolInvocationFailure is returned when rclone couldn't be started at all.
type ToolInvocationFailure struct {
	Command string
	Err     error
}

func (err ToolInvocationFailure) Error() string {
	return fmt.Sprintf("failed to run %s: %s", err.Command, err.Err)
}

func (err ToolInvocationFailure) Unwrap() error {
	return err.Err
}

// ToolExecutionFailure is returned when rclone ran but exited with a non-zero
// code.
type ToolExecutionFailure struct {
	ExitCode int

	// Output is the diagnostic text printed by rclone on stderr.
	Output string

	// Conflict is set when the output reports a sync conflict.
	Conflict bool
}

func (err ToolExecutionFailure) Error() string {
	if err.Output == "" {
		return fmt.Sprintf("rclone exited with code %d", err.ExitCode)
	}
	return err.Output
}

// ToolObscureFailure is returned when the credential couldn't be converted
// into rclone's obscured form. It aborts the whole sync.
type ToolObscureFailure struct {
	Err error
}

func (err ToolObscureFailure) Error() string {
	return fmt.Sprintf("obscure credential: %s", err.Err)
}

func (err ToolObscureFailure) Unwrap() error {
	return err.Err
}
