package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankflow/rankflow/internal/daemon"
)

func init() {
	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteRmCmd)
	rootCmd.AddCommand(noteCmd)
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Jot and list free-text notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add TEXT...",
	Short: "Add a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			n, err := d.Notes.Add(context.Background(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added note %s\n", shortID(n.ID))
			return nil
		})
	},
}

var noteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			notes := d.Notes.List()
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes yet.")
				return nil
			}
			for _, n := range notes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					shortID(n.ID),
					time.UnixMilli(n.CreatedAt).Format("2006-01-02 15:04"),
					n.Content)
			}
			return nil
		})
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(d *daemon.Daemon) error {
			id, err := noteID(d, args[0])
			if err != nil {
				return err
			}
			if err := d.Notes.Remove(context.Background(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed note %s\n", shortID(id))
			return nil
		})
	},
}
