package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/entity"
)

func newSetupEnvCmd(g *globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup-env [--force]",
		Short: "Writes the credentials file so later commands run without credential flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.cfg.CredentialsFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%w: credentials file already exists: %s (use --force to overwrite)", entity.ErrConfiguration, path)
			}

			creds := credentials.Credentials{Username: g.username, Password: g.password}
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if creds.Username == "" {
				if creds.Username, err = prompt(cmd.OutOrStdout(), in, "iClicker username: "); err != nil {
					return err
				}
			}
			if creds.Password == "" {
				if creds.Password, err = prompt(cmd.OutOrStdout(), in, "iClicker password: "); err != nil {
					return err
				}
			}
			if creds.Username == "" || creds.Password == "" {
				return fmt.Errorf("%w: username and password required", entity.ErrConfiguration)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := credentials.WriteFile(path, creds, force); err != nil {
				return fmt.Errorf("%w: %v", entity.ErrConfiguration, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials file created: %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing credentials file")
	return cmd
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
