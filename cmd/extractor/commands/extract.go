package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/entity"
)

func newExtractCmd(g *globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <activity_id> [-o file]",
		Short: "Classifies the question images of one activity and writes them as JSON.",
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

			activityID := args[0]
			questions, err := a.Runner.Extract(cmd.Context(), activityID, creds)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(g.cfg.OutputDir, fmt.Sprintf("iclicker_questions_%s_%s.json",
					activityID, time.Now().Format(entity.TimestampLayout)))
			}
			if err := writeQuestions(output, questions); err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Alt", "Dimensions", "Image URL"})
			for _, q := range questions {
				t.AppendRow(table.Row{q.QuestionNumber, q.ImageAlt, q.ImageDimensions, q.QuestionImageURL})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d questions saved to %s\n", len(questions), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: timestamped file in the output directory)")
	return cmd
}

func readQuestions(path string) ([]entity.QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []entity.QuestionRecord
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return questions, nil
}

func writeQuestions(path string, questions []entity.QuestionRecord) error {
	if questions == nil {
		questions = []entity.QuestionRecord{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
