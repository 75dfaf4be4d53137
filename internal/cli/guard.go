package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/app"
	"github.com/aussiebroadwan/rollcall/pkg/guard"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// GuardView is the JSON form of a routing decision.
type GuardView struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}

// NewGuardCommand creates the guard command.
func NewGuardCommand(opts *RootOptions) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Decide whether the signed-in user may open a route",
		Long: `Decide whether the signed-in user may open a route that requires
one of --roles. With no roles any signed-in user is allowed.

Prints "allow" and exits 0, or prints "redirect <path>" and exits 1.

Example:
  rollcall guard --roles admin,teacher`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			required := make([]jwtx.Role, 0, len(roles))
			for _, r := range roles {
				required = append(required, jwtx.ParseRole(r))
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				d := guard.Decide(guard.Roles(required...), a.Controller().User())
				view := GuardView{Allow: d.Allow, Redirect: d.Redirect}
				if !d.Allow {
					return out.Fail(d.String(), view)
				}
				return out.Success(view, d.String())
			})
		},
	}

	cmd.Flags().StringSliceVarP(&roles, "roles", "r", nil, "roles allowed on the route (admin, teacher, parent)")

	return cmd
}
