package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/app"
	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/pkg/config"
	"github.com/user/poll-extractor/pkg/logger"
)

const (
	exitOK             = 0
	exitFailure        = 1
	exitConfiguration  = 2
	exitAuthentication = 3
)

// ExitCode classifies err so callers can tell bad credentials or setup
// apart from failures worth retrying later.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, entity.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, entity.ErrAuthentication):
		return exitAuthentication
	default:
		return exitFailure
	}
}

type globals struct {
	username    string
	password    string
	outputDir   string
	showBrowser bool
	verbose     bool

	cfg        *config.Config
	loadConfig func() (*config.Config, error)
}

func (g *globals) credentials() (credentials.Credentials, error) {
	return credentials.Resolve(g.username, g.password, g.cfg.CredentialsFile)
}

func (g *globals) app(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, g.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrConfiguration, err)
	}
	return a, nil
}

// NewRootCmd builds the extractor command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.Load)
}

func newRootCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	g := &globals{loadConfig: loadConfig}

	root := &cobra.Command{
		Use:           "extractor",
		Short:         "extractor downloads poll question images from iClicker course histories.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fmt.Errorf("%w: %v", entity.ErrConfiguration, err)
			}
			if g.outputDir != "" {
				cfg.OutputDir = g.outputDir
				cfg.CredentialsFile = filepath.Join(g.outputDir, ".env")
			}
			if g.showBrowser {
				cfg.Headless = false
			}
			level := logger.ParseLevel(cfg.LogLevel)
			if g.verbose {
				level = slog.LevelDebug
			}
			logger.Init(cmd.ErrOrStderr(), level)
			g.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.username, "username", "", "iClicker username/email")
	flags.StringVar(&g.password, "password", "", "iClicker password")
	flags.StringVar(&g.outputDir, "output-dir", "", "directory for result documents and the credentials file")
	flags.BoolVar(&g.showBrowser, "show-browser", false, "show the browser window instead of running headless")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDiscoverCmd(g),
		newExtractCmd(g),
		newDownloadCmd(g),
		newRunCmd(g),
		newReorganizeCmd(g),
		newListCmd(g),
		newShowCmd(g),
		newSetupEnvCmd(g),
		newServeCmd(g),
		newWatchCmd(g),
	)
	return root
}

// ExecuteContext runs the command tree and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	return execute(ctx, NewRootCmd(), os.Stderr)
}

func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return ExitCode(err)
}
