package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/adapter/filestore"
	"github.com/user/poll-extractor/internal/usecase"
)

func newShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <result.json>",
		Short: "Summarizes a result document question by question.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := filestore.NewResultRepository(g.cfg.OutputDir).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := usecase.Summarize(args[0], result)
			fmt.Fprintf(out, "%s (%s), extracted %s\n", summary.Name, result.CourseID, result.ExtractionTimestamp)

			t := newTable(out)
			t.AppendHeader(table.Row{"Activity", "#", "Dimensions", "Image", "Size"})
			missing := 0
			for _, act := range result.Activities {
				for _, q := range act.Questions {
					status, size := "not downloaded", "-"
					if q.Downloaded() {
						if info, err := os.Stat(q.LocalImagePath); err == nil {
							status, size = q.LocalImagePath, humanize.Bytes(uint64(info.Size()))
						} else {
							status = "missing: " + q.LocalImagePath
							missing++
						}
					}
					t.AppendRow(table.Row{act.ActivityName, q.QuestionNumber, q.ImageDimensions, status, size})
				}
			}
			t.AppendFooter(table.Row{
				fmt.Sprintf("%d activities", result.TotalActivitiesProcessed),
				result.TotalQuestionsExtracted,
				"",
				fmt.Sprintf("%d downloaded", result.TotalImagesDownloaded),
				"",
			})
			t.Render()

			if result.TotalQuestionsExtracted > 0 {
				rate := float64(result.TotalImagesDownloaded) / float64(result.TotalQuestionsExtracted) * 100
				fmt.Fprintf(out, "Download rate: %.1f%%\n", rate)
			}
			if missing > 0 {
				fmt.Fprintf(out, "%d recorded images are missing on disk\n", missing)
			}
			return nil
		},
	}
}
