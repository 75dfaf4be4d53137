package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/app"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// SessionView is what status and login report about the session.
type SessionView struct {
	State string            `json:"state"`
	User  *jwtx.UserProfile `json:"user,omitempty"`
}

func sessionOf(c *authsdk.Controller) SessionView {
	return SessionView{State: c.State().String(), User: c.User()}
}

func (v SessionView) String() string {
	if v.User == nil {
		return v.State
	}
	return fmt.Sprintf("%s as %s <%s> (%s)", v.State, v.User.Name, v.User.Email, v.User.Role)
}

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. The tokens are kept in the
configured session store so later commands stay signed in.

When --password is omitted it is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := readLine(bufio.NewReader(cmd.InOrStdin()))
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read password", err)
				}
				password = line
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				res := a.Controller().Login(ctx, email, password)
				if !res.Success {
					out.Debugf("login error: %v", res.Err)
					return out.Fail(res.Message, nil)
				}
				view := sessionOf(a.Controller())
				return out.Success(view, res.Message+": "+view.String())
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				if err := a.Controller().Logout(ctx); err != nil {
					return WrapExitError(ExitCommandError, "failed to clear session", err)
				}
				return out.Success(sessionOf(a.Controller()), "Logged out")
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				view := sessionOf(a.Controller())
				return out.Success(view, view.String())
			})
		},
	}
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				if _, err := a.Controller().RefreshAccessToken(ctx); err != nil {
					out.Debugf("refresh error: %v", err)
					return out.Fail(authsdk.MessageFor(err, "Refresh failed"), sessionOf(a.Controller()))
				}
				return out.Success(sessionOf(a.Controller()), "Access token refreshed")
			})
		},
	}
}

// readLine returns the next line of r without its line ending.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
