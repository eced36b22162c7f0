package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rankflow/rankflow/internal/daemon"
)

func init() {
	habitAddCmd.Flags().StringVarP(&habitFrequency, "frequency", "f", "daily", "daily, weekly, weekdays or weekend")
	habitToggleCmd.Flags().StringVar(&habitDate, "date", "", "Day to toggle (YYYY-MM-DD, default today)")

	habitCmd.AddCommand(habitAddCmd, habitListCmd, habitToggleCmd, habitRmCmd)
	rootCmd.AddCommand(habitCmd)
}

var (
	habitFrequency string
	habitDate      string
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Track recurring habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add TITLE...",
	Short: "Add a habit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			h, err := d.Habits.Add(context.Background(), strings.Join(args, " "), habitFrequency)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added habit %s (%s)\n", shortID(h.ID), h.Frequency)
			return nil
		})
	},
}

var habitListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List habits with their streaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			habits := d.Habits.List()
			if len(habits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No habits yet. Run 'rankflow habit add <title>'.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFREQUENCY\tTODAY\tSTREAK\tBEST\tTOTAL\tTITLE")
			for _, h := range habits {
				st, err := d.Habits.Streak(h.ID)
				if err != nil {
					return err
				}
				today := "-"
				if st.CompletedToday {
					today = "✓"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					shortID(h.ID), h.Frequency, today, st.Current, st.Longest, st.Total, h.Title)
			}
			return w.Flush()
		})
	},
}

var habitToggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Mark a habit done for a day, or undo it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			id, err := habitID(d, args[0])
			if err != nil {
				return err
			}
			h, err := d.Habits.Toggle(context.Background(), id, habitDate)
			if err != nil {
				return err
			}
			st, err := d.Habits.Streak(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: current streak %d, best %d\n", h.Title, st.Current, st.Longest)
			return nil
		})
	},
}

var habitRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			id, err := habitID(d, args[0])
			if err != nil {
				return err
			}
			if err := d.Habits.Remove(context.Background(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed habit %s\n", shortID(id))
			return nil
		})
	},
}
