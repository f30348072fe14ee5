package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/index-checker/internal/logger"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the bearer token locally",
		Long: "Log in to the API. Without --password the password is read from the first line of stdin, " +
			"so it can be piped in.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				if password, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			resp, err := deps.API.Login(ctx, username, password)
			if err != nil {
				return err
			}
			if err := deps.State.Login(ctx, resp.Token); err != nil {
				return err
			}

			deps.Logger.Debug("Token stored", logger.Time("expires_at", resp.ExpiresAt))
			fmt.Fprintf(deps.Out, "Logged in as %s (expires %s)\n",
				resp.User.Username, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token and forget it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if deps.API.Token() != "" {
				if err := deps.API.Logout(ctx); err != nil {
					deps.Logger.Warn("Server logout failed, forgetting token anyway", logger.Error(err))
				}
			}
			if err := deps.State.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(deps.Out, "Logged out")
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
