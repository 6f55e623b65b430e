package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newDownloadCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "download <questions.json> <dir>",
		Short: "Downloads the images of previously extracted questions and annotates the file.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := readQuestions(args[0])
			if err != nil {
				return err
			}
			a, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Downloader.Download(cmd.Context(), uuid.NewString(), questions, args[1])
			if err != nil {
				return err
			}
			if err := writeQuestions(args[0], questions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d/%d images to %s\n", n, len(questions), args[1])
			return nil
		},
	}
}
