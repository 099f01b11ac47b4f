/*
The sync package implements davsync's sync orchestration. It decides how a
sync of the personal and shared directories runs, and keeps track of how it
went.

rclone does the actual work. Each directory is synced by a single
`rclone bisync` run against the matching WebDAV endpoint. A directory that has
never been synced successfully is synced with --resync, which builds the
baseline that later runs compare against. Once that succeeds an init marker
is written into the directory, and later runs use --recover instead.

The outcome of each run is appended to the ActivityLog, and the combined
outcome becomes the Status:
1) Both directories synced -- Idle.
2) Any run failed for a reason other than a conflict -- Error, with the
   message of the first such failure. The personal directory is synced first,
   so its message wins if both fail.
3) Every failed run reported a conflict -- Conflict.

Only one sync runs at a time. A sync requested while another is running is
rejected with ErrSyncInProgress.
*/
package sync
