package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/entity"
)

func newWatchCmd(g *globals) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "watch [--run ID]",
		Short: "Follows progress published over Redis by runs in any process.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.RedisAddr == "" {
				return fmt.Errorf("%w: watch needs REDIS_ADDR", entity.ErrConfiguration)
			}
			a, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if runID == "" {
				if remote, ok := a.Coordinator.Remote(cmd.Context()); ok {
					runID = remote.RunID
					fmt.Fprintln(out, formatProgress(entity.ProgressEvent{
						RunID: remote.RunID, Kind: entity.ProgressKindProgress, Progress: remote.Progress, Message: remote.Message,
					}))
				}
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			err = a.SharedProgress.Subscribe(ctx, func(e entity.ProgressEvent) {
				if runID != "" && e.RunID != runID {
					return
				}
				fmt.Fprintln(out, formatProgress(e))
				if runID != "" && e.Kind != entity.ProgressKindProgress {
					cancel()
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "only show this run and stop when it finishes (default: the run holding the lock)")
	return cmd
}

func formatProgress(e entity.ProgressEvent) string {
	return fmt.Sprintf("[%s] %5.1f%% %-8s %s", entity.ShortID(e.RunID), e.Progress, e.Kind, e.Message)
}
