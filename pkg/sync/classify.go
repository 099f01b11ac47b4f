package sync

import "strings"

// IsConflict reports whether rclone's diagnostic output describes a sync
// conflict. rclone has no machine readable way of reporting conflicts, so
// this matches on the wording of its messages.
func IsConflict(output string) bool {
	return strings.Contains(strings.ToLower(output), "conflict")
}
