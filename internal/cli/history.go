package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/makstermee/Gym-planner/internal/app"
	"github.com/makstermee/Gym-planner/internal/workout"
)

var errClearNotConfirmed = errors.New("history clear deletes every saved workout; pass --yes to confirm")

func newHistoryCommand(o *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved workouts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *app.Runtime) error {
				printHistory(cmd.OutOrStdout(), rt.Store.Document().Logs, limit)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n workouts (0 shows all)")
	cmd.AddCommand(newHistoryClearCommand(o))
	return cmd
}

func printHistory(w io.Writer, logs []workout.LogEntry, limit int) {
	if len(logs) == 0 {
		faintColor.Fprintln(w, "No saved workouts yet.")
		return
	}
	shown := 0
	for i := len(logs) - 1; i >= 0; i-- {
		if limit > 0 && shown == limit {
			break
		}
		entry := logs[i]
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			dayColor.Sprint(entry.Date), entry.DayName, entry.Duration,
			faintColor.Sprint("volume "+formatWeight(entry.Volume())))
		for _, ex := range entry.Exercises {
			fmt.Fprintf(w, "  %s  %s\n", nameColor.Sprint(ex.Name), formatSets(ex.LoggedSets))
		}
		shown++
	}
}

func newHistoryClearCommand(o *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errClearNotConfirmed
			}
			return o.withRuntime(cmd, func(rt *app.Runtime) error {
				n := len(rt.Store.Document().Logs)
				if err := rt.Store.Update(func(doc *workout.Document) error {
					doc.ClearLogs()
					return nil
				}); err != nil {
					return fmt.Errorf("clear history: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d saved workouts\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
