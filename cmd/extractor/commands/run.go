package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/entity"
)

func newRunCmd(g *globals) *cobra.Command {
	var noReorganize bool

	cmd := &cobra.Command{
		Use:   "run <course_url|course_id>",
		Short: "Extracts every activity of a course, downloads its images and saves one result document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := g.credentials()
			if err != nil {
				return err
			}
			if noReorganize {
				g.cfg.AutoReorganize = false
			}
			a, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Coordinator.Start(cmd.Context(), courseURL(g.cfg.PortalBaseURL, args[0]), creds); err != nil {
				return err
			}
			status, err := a.Coordinator.Wait(cmd.Context())
			if err != nil {
				return fmt.Errorf("interrupted while the run was in progress: %w", err)
			}

			out := cmd.OutOrStdout()
			t := newTable(out)
			t.AppendHeader(table.Row{"Run", "Activities", "Questions", "Images", "Document"})
			t.AppendRow(table.Row{status.RunID, status.Activities, status.Questions, status.Images, status.ResultPath})
			t.Render()

			failures, err := a.Failures.FindByRun(cmd.Context(), status.RunID)
			if err != nil {
				slog.Warn("Failed to load failed downloads", "run_id", status.RunID, "error", err)
			} else if len(failures) > 0 {
				writeFailures(out, failures)
			}
			return status.Err()
		},
	}
	cmd.Flags().BoolVar(&noReorganize, "no-reorganize", false, "keep id-based names instead of renaming to readable ones")
	return cmd
}

func writeFailures(w io.Writer, failures []*entity.FailedDownload) {
	t := newTable(w)
	t.SetTitle("Failed downloads")
	t.AppendHeader(table.Row{"Activity", "#", "Reason", "Image URL"})
	for _, f := range failures {
		t.AppendRow(table.Row{entity.ShortID(f.ActivityID), f.QuestionNumber, f.Reason, f.ImageURL})
	}
	t.Render()
}
