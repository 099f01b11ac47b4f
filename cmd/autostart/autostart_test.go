package autostart

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	exec      []string
	enabled   bool
	enableErr error
}

func (app *fakeApp) IsEnabled() bool {
	return app.enabled
}

func (app *fakeApp) Enable() error {
	if app.enableErr != nil {
		return app.enableErr
	}
	app.enabled = true
	return nil
}

func (app *fakeApp) Disable() error {
	app.enabled = false
	return nil
}

func mockApp(t *testing.T, app *fakeApp) *bytes.Buffer {
	origNewApp, origExecutable := newApp, executable
	t.Cleanup(func() {
		newApp, executable = origNewApp, origExecutable
	})

	executable = func() (string, error) { return "/usr/local/bin/davsync", nil }
	newApp = func(exec []string) launcher {
		app.exec = exec
		return app
	}

	out := bytes.NewBuffer(nil)
	stdout = out
	return out
}

func TestEnableDisable(t *testing.T) {
	app := &fakeApp{}
	out := mockApp(t, app)

	require.NoError(t, setEnabled(true))
	assert.True(t, app.enabled)
	assert.Equal(t, []string{"/usr/local/bin/davsync", "agent"}, app.exec)
	assert.Equal(t, "The agent starts when you log in.\n", out.String())

	// Enabling again is a no-op.
	require.NoError(t, setEnabled(true))
	assert.True(t, app.enabled)

	out.Reset()
	require.NoError(t, setEnabled(false))
	assert.False(t, app.enabled)
	assert.Contains(t, out.String(), "doesn't start")
}

func TestEnableError(t *testing.T) {
	app := &fakeApp{enableErr: errors.New("permission denied")}
	mockApp(t, app)

	err := setEnabled(true)
	assert.EqualError(t, err, "update login items: permission denied")
}

func TestExecutableError(t *testing.T) {
	mockApp(t, &fakeApp{})
	executable = func() (string, error) { return "", os.ErrNotExist }

	assert.Error(t, printStatus())
}
