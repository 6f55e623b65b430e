package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/adapter/filestore"
	"github.com/user/poll-extractor/internal/usecase"
)

func newListCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list [--limit N]",
		Short: "Lists the most recent result documents in the output directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := usecase.NewCatalog(filestore.NewResultRepository(g.cfg.OutputDir))
			summaries, err := catalog.Summaries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No result documents found in %s\n", g.cfg.OutputDir)
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "File", "Course", "Activities", "Questions", "Images", "Extracted"})
			for i, s := range summaries {
				t.AppendRow(table.Row{i + 1, s.File, s.Name, s.Activities, s.Questions, s.Images, s.Timestamp})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of documents to show")
	return cmd
}
