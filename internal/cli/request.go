package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/app"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
)

// NewRequestCommand creates the request command.
func NewRequestCommand(opts *RootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an authenticated request to the register API",
		Long: `Send a request through the session client. The access token is
attached and refreshed once if the server reports it expired.

Example:
  rollcall request GET /students
  rollcall request POST /students --data '{"first_name":"Sam"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, path := strings.ToUpper(args[0]), args[1]

			var in any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return NewExitError(ExitCommandError, "invalid --data JSON")
				}
				in = json.RawMessage(data)
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app.Application, out *Output) error {
				var body json.RawMessage
				if err := a.Client().Do(ctx, method, path, in, &body); err != nil {
					out.Debugf("%s %s: %v", method, path, err)
					return out.Fail(authsdk.MessageFor(err, "Request failed"), nil)
				}

				if out.Format == "json" {
					return out.Success(body, "")
				}

				var pretty bytes.Buffer
				if len(body) == 0 || json.Indent(&pretty, body, "", "  ") != nil {
					pretty.Reset()
					pretty.Write(body)
				}
				return out.Success(body, pretty.String())
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "request body as JSON")

	return cmd
}
