package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rankflow/rankflow/internal/daemon"
	"github.com/rankflow/rankflow/internal/domain"
)

// withDaemon opens the configured store, runs fn and closes the daemon.
// Close flushes pending task saves, so its error is reported too.
func withDaemon(fn func(d *daemon.Daemon) error) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	err = fn(d)
	return errors.Join(err, d.Close())
}

// resolveID expands an id prefix to the one full id it matches.
func resolveID(ids []string, prefix string, notFound error) (string, error) {
	if strings.TrimSpace(prefix) == "" {
		return "", fmt.Errorf("%w: empty id", notFound)
	}
	var match string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", notFound, prefix)
	}
	return match, nil
}

func taskID(d *daemon.Daemon, prefix string) (string, error) {
	tasks := d.Engine.Snapshot().Tasks
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return resolveID(ids, prefix, domain.ErrTaskNotFound)
}

func habitID(d *daemon.Daemon, prefix string) (string, error) {
	habits := d.Habits.List()
	ids := make([]string, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	return resolveID(ids, prefix, domain.ErrHabitNotFound)
}

func noteID(d *daemon.Daemon, prefix string) (string, error) {
	notes := d.Notes.List()
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return resolveID(ids, prefix, domain.ErrNoteNotFound)
}

// shortID is the display form of an id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printTasks(out io.Writer, tasks []domain.Task) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRI\tDIF\tURG\tSTATUS\tDUE\tTITLE")
	for _, t := range tasks {
		due := t.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			shortID(t.ID),
			t.PriorityRank,
			t.DifficultyRank,
			t.UrgencyRank,
			t.Status,
			due,
			t.Title,
		)
	}
	return w.Flush()
}
