package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankflow/rankflow/internal/app/ranking"
	"github.com/rankflow/rankflow/internal/daemon"
	"github.com/rankflow/rankflow/internal/domain"
)

func init() {
	addCmd.Flags().StringVarP(&addDesc, "desc", "d", "", "Task description")
	addCmd.Flags().StringVar(&addDue, "due", "", "Due date (YYYY-MM-DD)")

	listCmd.Flags().StringVar(&listBy, "by", "priority", "Criterion to sort by (priority, difficulty, urgency)")
	listCmd.Flags().BoolVar(&listActive, "active", false, "Hide done tasks")

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVarP(&editDesc, "desc", "d", "", "New description")
	editCmd.Flags().StringVar(&editDue, "due", "", "New due date (YYYY-MM-DD, empty clears)")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, editCmd, rankCmd, upCmd, downCmd, rmCmd, doneCmd)
}

var (
	addDesc, addDue              string
	listBy                       string
	listActive                   bool
	editTitle, editDesc, editDue string
)

var addCmd = &cobra.Command{
	Use:   "add TITLE...",
	Short: "Add a task at the bottom of every ordering",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			t := domain.NewTask(strings.Join(args, " "), addDesc, addDue, time.Now())
			snap, err := d.Engine.Append(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (rank %d of %d)\n", shortID(t.ID), snap.Len(), snap.Len())
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks ordered by one criterion",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := domain.ParseCriterion(listBy)
		if err != nil {
			return err
		}
		return withDaemon(func(d *daemon.Daemon) error {
			snap := d.Engine.Snapshot()
			tasks := snap.Project(c)
			if listActive {
				tasks = snap.ProjectActive(c)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks. Run 'rankflow add <title>' to get started.")
				return nil
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			id, err := taskID(d, args[0])
			if err != nil {
				return err
			}
			t, err := d.Engine.Get(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", t.ID)
			fmt.Fprintf(out, "Title:       %s\n", t.Title)
			if t.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", t.Description)
			}
			fmt.Fprintf(out, "Status:      %s\n", t.Status)
			fmt.Fprintf(out, "Priority:    %d\n", t.PriorityRank)
			fmt.Fprintf(out, "Difficulty:  %d\n", t.DifficultyRank)
			fmt.Fprintf(out, "Urgency:     %d\n", t.UrgencyRank)
			if t.HasDueDate() {
				fmt.Fprintf(out, "Due:         %s\n", t.DueDate)
			}
			fmt.Fprintf(out, "Created:     %s\n", t.Created().Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a task's title, description or due date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p ranking.Patch
		if cmd.Flags().Changed("title") {
			p.Title = &editTitle
		}
		if cmd.Flags().Changed("desc") {
			p.Description = &editDesc
		}
		if cmd.Flags().Changed("due") {
			p.DueDate = &editDue
		}
		return mutateTask(cmd, args[0], "Updated", func(d *daemon.Daemon, id string) (ranking.Snapshot, error) {
			return d.Engine.Update(id, p)
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank ID CRITERION RANK",
	Short: "Move a task to an exact rank in one ordering",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := domain.ParseCriterion(args[1])
		if err != nil {
			return err
		}
		rank, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidRank, args[2])
		}
		return mutateTask(cmd, args[0], "Ranked", func(d *daemon.Daemon, id string) (ranking.Snapshot, error) {
			return d.Engine.SetRank(id, c, rank)
		})
	},
}

var upCmd = &cobra.Command{
	Use:   "up ID CRITERION",
	Short: "Swap a task with the one above it",
	Long: `Swap a task with the one above it in the full ordering for CRITERION.

Done tasks count as neighbours even though list --active hides them, so a
move next to a hidden done task changes nothing in the active list.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, args, domain.DirectionUp)
	},
}

var downCmd = &cobra.Command{
	Use:   "down ID CRITERION",
	Short: "Swap a task with the one below it",
	Long: `Swap a task with the one below it in the full ordering for CRITERION.

Done tasks count as neighbours even though list --active hides them, so a
move next to a hidden done task changes nothing in the active list.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, args, domain.DirectionDown)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a task and close its gap in every ordering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			id, err := taskID(d, args[0])
			if err != nil {
				return err
			}
			if _, err := d.Engine.Remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", shortID(id))
			return nil
		})
	},
}

var doneCmd = &cobra.Command{
	Use:   "done ID",
	Short: "Toggle a task between todo and done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTask(cmd, args[0], "Toggled", func(d *daemon.Daemon, id string) (ranking.Snapshot, error) {
			return d.Engine.ToggleStatus(id)
		})
	},
}

func runMove(cmd *cobra.Command, args []string, dir domain.Direction) error {
	c, err := domain.ParseCriterion(args[1])
	if err != nil {
		return err
	}
	var hidden *domain.Task
	err = mutateTask(cmd, args[0], "Moved", func(d *daemon.Daemon, id string) (ranking.Snapshot, error) {
		if n, ok := d.Engine.Snapshot().Neighbor(id, c, dir); ok && n.IsDone() {
			hidden = &n
		}
		return d.Engine.MoveAdjacent(id, c, dir)
	})
	if err == nil && hidden != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Swapped with done task %s %q, which list --active hides\n",
			shortID(hidden.ID), hidden.Title)
	}
	return err
}

// mutateTask resolves the id, applies op and prints the task's new ranks.
func mutateTask(cmd *cobra.Command, prefix, verb string, op func(d *daemon.Daemon, id string) (ranking.Snapshot, error)) error {
	return withDaemon(func(d *daemon.Daemon) error {
		id, err := taskID(d, prefix)
		if err != nil {
			return err
		}
		snap, err := op(d, id)
		if err != nil {
			return err
		}
		t, _ := snap.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: priority %d, difficulty %d, urgency %d, %s\n",
			verb, shortID(id), t.PriorityRank, t.DifficultyRank, t.UrgencyRank, t.Status)
		return nil
	})
}
