package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/makstermee/Gym-planner/internal/app"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/timer"
)

func newStatusCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync state, plan and history totals, and any unfinished workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *app.Runtime) error {
				printStatus(cmd.OutOrStdout(), rt.Config.Remote.Backend, rt.Store.Snapshot(), time.Now())
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, backend string, v state.View, now time.Time) {
	doc := v.Document

	var volume float64
	for _, entry := range doc.Logs {
		volume += entry.Volume()
	}

	printBoxedHeader(w, "STATUS")
	printMetric(w, "Identity", v.Identity)
	printMetric(w, "Remote", backend)
	printMetric(w, "Sync", v.Phase)
	printMetric(w, "Planned exercises", doc.TotalExercises())
	printMetric(w, "Saved workouts", len(doc.Logs))
	printMetric(w, "Total volume", formatWeight(volume)+" kg")
	if n := len(doc.Logs); n > 0 {
		last := doc.Logs[n-1]
		printMetric(w, "Last workout", fmt.Sprintf("%s %s (%s)", last.Date, last.DayName, last.Duration))
	}

	if active := doc.ActiveWorkout; active.IsActive {
		fmt.Fprintln(w)
		activeColor.Fprintln(w, "Unfinished workout")
		printMetric(w, "Day", active.DayName)
		printMetric(w, "Started", active.StartTime.Local().Format("2006-01-02 15:04"))
		printMetric(w, "Elapsed", timer.FormatElapsed(now.Sub(active.StartTime)))
		faintColor.Fprintln(w, "  open gymplanner to resume or discard it")
	}
}
