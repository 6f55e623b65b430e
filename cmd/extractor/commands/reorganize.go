package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/usecase"
)

func newReorganizeCmd(g *globals) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "reorganize <result.json> [--apply]",
		Short: "Renames a saved course and its image directories to readable names.",
		Long:  "Prints the planned renames. Nothing on disk changes unless --apply is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.Reorganizer.Reorganize(cmd.Context(), args[0], apply)
			if plan != nil {
				renderPlan(cmd, plan)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case plan.Empty():
				fmt.Fprintln(out, "Nothing to reorganize")
			case apply:
				fmt.Fprintf(out, "Reorganized %s into %s\n", args[0], plan.JSON.To)
			default:
				fmt.Fprintln(out, "Dry run: re-run with --apply to perform these renames")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "perform the renames")
	return cmd
}

func renderPlan(cmd *cobra.Command, plan *usecase.ReorganizationPlan) {
	t := newTable(cmd.OutOrStdout())
	t.SetTitle(plan.CourseName)
	t.AppendHeader(table.Row{"Kind", "From", "To", "Questions"})
	t.AppendRow(table.Row{"document", plan.JSON.From, plan.JSON.To, ""})
	if plan.CourseDir != nil {
		t.AppendRow(table.Row{"course", plan.CourseDir.From, plan.CourseDir.To, ""})
	}
	for _, act := range plan.Activities {
		t.AppendRow(table.Row{act.ActivityName, act.From, act.To, act.Questions})
	}
	t.Render()
}
