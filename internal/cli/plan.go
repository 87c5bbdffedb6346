package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/makstermee/Gym-planner/internal/app"
	"github.com/makstermee/Gym-planner/internal/workout"
)

func newPlanCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show and edit the weekly plan",
	}
	cmd.AddCommand(newPlanShowCommand(o), newPlanAddCommand(o), newPlanRemoveCommand(o))
	return cmd
}

func newPlanShowCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [day]",
		Short: "Print the plan of every day, or of one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days := workout.DayNames
			if len(args) == 1 {
				day, err := resolveDay(args[0])
				if err != nil {
					return err
				}
				days = []string{day}
			}
			return o.withRuntime(cmd, func(rt *app.Runtime) error {
				printPlan(cmd.OutOrStdout(), rt.Store.Document(), days)
				return nil
			})
		},
	}
}

func printPlan(w io.Writer, doc workout.Document, days []string) {
	for _, day := range days {
		dayColor.Fprintln(w, day)
		plan := doc.Plans[day]
		if len(plan) == 0 {
			faintColor.Fprintln(w, "  rest day")
			continue
		}
		for i, ex := range plan {
			fmt.Fprintf(w, "  %d. %s  %d × %d\n", i+1, nameColor.Sprint(ex.Name), ex.TargetSets, ex.TargetReps)
		}
	}
}

func newPlanAddCommand(o *rootOptions) *cobra.Command {
	var sets, reps int
	cmd := &cobra.Command{
		Use:   "add <day> <exercise name...>",
		Short: "Append an exercise to the plan of a day",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDay(args[0])
			if err != nil {
				return err
			}
			tmpl := workout.ExerciseTemplate{
				Name:       strings.Join(args[1:], " "),
				TargetSets: sets,
				TargetReps: reps,
			}
			if err := tmpl.Validate(); err != nil {
				return err
			}
			return o.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := rt.Store.Update(func(doc *workout.Document) error {
					return doc.AddExercise(day, tmpl)
				}); err != nil {
					return fmt.Errorf("add exercise: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d × %d) to %s\n", nameColor.Sprint(tmpl.Name), sets, reps, day)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&sets, "sets", "s", 3, "target sets")
	cmd.Flags().IntVarP(&reps, "reps", "r", 10, "target reps per set")
	return cmd
}

func newPlanRemoveCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <day> <position>",
		Aliases: []string{"remove"},
		Short:   "Remove an exercise from the plan of a day",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDay(args[0])
			if err != nil {
				return err
			}
			pos, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("position %q is not a number", args[1])
			}
			return o.withRuntime(cmd, func(rt *app.Runtime) error {
				var removed string
				if err := rt.Store.Update(func(doc *workout.Document) error {
					if plan := doc.Plans[day]; pos >= 1 && pos <= len(plan) {
						removed = plan[pos-1].Name
					}
					return doc.RemoveExercise(day, pos-1)
				}); err != nil {
					return fmt.Errorf("remove exercise: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", nameColor.Sprint(removed), day)
				return nil
			})
		},
	}
}
