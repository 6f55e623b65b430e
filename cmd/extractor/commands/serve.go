package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd(g *globals) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve [--port N]",
		Short: "Runs the dashboard API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				g.cfg.ServerPort = port
			}
			a, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			server := a.Server(g.credentials)
			errCh := make(chan error, 1)
			go func() {
				slog.Info("Starting server", "port", g.cfg.ServerPort)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			slog.Info("Shutting down server")
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 10*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default: SERVER_PORT)")
	return cmd
}
