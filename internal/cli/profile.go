package cli

import (
	"bufio"
	"context"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/app"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the signed-in user's profile",
	}

	cmd.AddCommand(newProfileShowCommand(opts), newProfileUpdateCommand(opts))

	return cmd
}

func newProfileShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch the profile from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				profile, err := a.Controller().FetchProfile(ctx)
				if err != nil {
					out.Debugf("profile error: %v", err)
					return out.Fail(authsdk.MessageFor(err, "Failed to load profile"), nil)
				}
				return out.Success(profile, sessionOf(a.Controller()).String())
			})
		},
	}
}

func newProfileUpdateCommand(opts *RootOptions) *cobra.Command {
	var firstName, lastName, email string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update authsdk.ProfileUpdate
			if cmd.Flags().Changed("first-name") {
				update.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				update.LastName = &lastName
			}
			if cmd.Flags().Changed("email") {
				update.Email = &email
			}
			if update.Empty() {
				return NewExitError(ExitCommandError, "nothing to update: set --first-name, --last-name or --email")
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				res := a.Controller().UpdateProfile(ctx, update)
				if !res.Success {
					return out.Fail(res.Message, nil)
				}
				return out.Success(a.Controller().User(), res.Message)
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&email, "email", "", "new email")

	return cmd
}

// NewPasswordCommand creates the password command.
func NewPasswordCommand(opts *RootOptions) *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the signed-in user's password",
		Long: `Change the signed-in user's password. Missing values are read from
stdin, current password first, one per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			for _, p := range []*string{&current, &next} {
				if *p != "" {
					continue
				}
				line, err := readLine(in)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read password", err)
				}
				*p = line
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				res := a.Controller().ChangePassword(ctx, current, next)
				if !res.Success {
					return out.Fail(res.Message, nil)
				}
				return out.Success(nil, res.Message)
			})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")

	return cmd
}
