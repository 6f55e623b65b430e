package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDiscoverCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <course_url|course_id>",
		Short: "Lists the poll activities linked from a course history page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := g.credentials()
			if err != nil {
				return err
			}
			a, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			refs, err := a.Runner.Discover(cmd.Context(), courseURL(g.cfg.PortalBaseURL, args[0]), creds)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Activity ID", "Name"})
			for i, ref := range refs {
				t.AppendRow(table.Row{i + 1, ref.ActivityID, ref.DisplayName})
			}
			t.AppendFooter(table.Row{"", "Total", len(refs)})
			t.Render()
			return nil
		},
	}
}
