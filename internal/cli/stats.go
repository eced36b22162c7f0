package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankflow/rankflow/internal/app/dashboard"
	"github.com/rankflow/rankflow/internal/daemon"
	"github.com/rankflow/rankflow/internal/domain"
)

func init() {
	rootCmd.AddCommand(statsCmd, calendarCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the dashboard summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			st := dashboard.Compute(d.Engine.Snapshot().Tasks, d.Habits.List(), time.Now())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date:        %s\n", st.Date)
			fmt.Fprintf(out, "Tasks:       %d (%d todo, %d done, %d%% complete)\n", st.Tasks, st.Todo, st.Done, st.CompletionPercent)
			fmt.Fprintf(out, "Due today:   %d\n", st.DueToday)
			fmt.Fprintf(out, "Overdue:     %d\n", st.Overdue)
			for _, a := range st.Averages {
				fmt.Fprintf(out, "Avg %-10s %.1f\n", a.Label+":", a.Avg)
			}
			fmt.Fprintf(out, "Habits:      %d (%d of %d due today done)\n", st.Habits, st.HabitsCompletedToday, st.HabitsDueToday)
			return nil
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar [DATE]",
	Short: "Show tasks due and habits completed on a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := domain.FormatDate(time.Now())
		if len(args) == 1 {
			var err error
			if date, err = domain.NormalizeDate(args[0]); err != nil {
				return err
			}
		}
		return withDaemon(func(d *daemon.Daemon) error {
			day := dashboard.Calendar(date, d.Engine.Snapshot().Project(domain.CriterionUrgency), d.Habits.List())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", day.Date)
			if len(day.Tasks) == 0 {
				fmt.Fprintln(out, "  No tasks due.")
			}
			for _, t := range day.Tasks {
				fmt.Fprintf(out, "  [%s] %s  %s\n", t.Status, shortID(t.ID), t.Title)
			}
			for _, h := range day.Habits {
				fmt.Fprintf(out, "  habit ✓ %s\n", h.Title)
			}
			return nil
		})
	},
}
