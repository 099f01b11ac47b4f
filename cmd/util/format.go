package util

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/buger/goterm"

	"github.com/sidkik/davsync/pkg/sync"
)

// FormatStatus returns a colored description of the status for printing to
// the terminal.
func FormatStatus(status sync.Status) string {
	switch status.Phase {
	case sync.PhaseIdle:
		return goterm.Color("Up to date", goterm.GREEN)
	case sync.PhaseSyncing:
		return goterm.Color("Syncing", goterm.BLUE)
	case sync.PhaseConflict:
		return goterm.Color("Conflict", goterm.YELLOW) +
			"\nConflicting changes were found. The newer version of each file was kept."
	case sync.PhaseError:
		return goterm.Color("Error", goterm.RED) + "\n" + status.Message
	case sync.PhaseNotConfigured:
		return "Not configured\nRun `davsync login` to set the server and account."
	default:
		return string(status.Phase)
	}
}

// PrintActivity prints the activity entries as a table, oldest first.
func PrintActivity(out io.Writer, entries []sync.ActivityEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No activity yet.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tSTATUS\tDETAILS")
	for _, entry := range entries {
		status := string(entry.Status)
		if entry.Status == sync.ActivityError {
			status = goterm.Color(status, goterm.RED)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.Timestamp.Local().Format(time.DateTime),
			entry.Action, status, firstLine(entry.Details))
	}
	return w.Flush()
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
