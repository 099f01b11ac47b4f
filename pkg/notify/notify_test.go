package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotify(t *testing.T) {
	origNotify := notify
	defer func() { notify = origNotify }()

	var gotTitle, gotMessage, gotIcon string
	notify = func(title, message string, icon string) error {
		gotTitle, gotMessage, gotIcon = title, message, icon
		return nil
	}

	assert.NoError(t, Desktop{Icon: "/icon.png"}.Notify("Sync failed", "boom"))
	assert.Equal(t, "DavSync: Sync failed", gotTitle)
	assert.Equal(t, "boom", gotMessage)
	assert.Equal(t, "/icon.png", gotIcon)

	notify = func(string, string, string) error {
		return errors.New("no dbus")
	}
	err := Desktop{}.Notify("Sync failed", "boom")
	assert.EqualError(t, err, "show notification: no dbus")
}
