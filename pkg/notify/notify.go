// Package notify shows desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/sidkik/davsync/pkg/errors"
)

var notify = func(title, message, icon string) error {
	return beeep.Notify(title, message, icon)
}

// Desktop shows notifications using the desktop's notification service.
type Desktop struct {
	// Icon is the path to the icon shown with the notification. It may be
	// empty.
	Icon string
}

// Notify shows a notification.
func (d Desktop) Notify(title, message string) error {
	if err := notify("DavSync: "+title, message, d.Icon); err != nil {
		return errors.WithContext(err, "show notification")
	}
	return nil
}
