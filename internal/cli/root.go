// Package cli is the rollcall command line: it signs in against the register
// API, keeps the session on disk and lets scripts ask routing questions.
package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/app"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
	Metrics    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rollcall CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rollcall",
		Short: "Session tools for the attendance register",
		Long: `rollcall signs in to the attendance register API and keeps the
session between runs. Expired access tokens are refreshed transparently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $ROLLCALL_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "dump session metrics to stderr on exit")

	cmd.AddCommand(
		NewLoginCommand(opts),
		NewLogoutCommand(opts),
		NewStatusCommand(opts),
		NewRefreshCommand(opts),
		NewGuardCommand(opts),
		NewProfileCommand(opts),
		NewPasswordCommand(opts),
		NewRequestCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}

// runWithApp loads the configuration, opens the application for the
// duration of fn and closes it afterwards.
func runWithApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.Application, out *Output) error) error {
	cfg, err := app.LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	cfg.LogOutput = cmd.ErrOrStderr()
	if opts.Verbose {
		cfg.LogLevel = "debug"
	} else {
		cfg.LogLevel = "warn"
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer func() { _ = a.Close() }()

	ctx := slogx.WithContext(cmd.Context(), a.Logger())
	err = fn(ctx, a, opts.output(cmd))
	if opts.Metrics {
		if derr := dumpMetrics(cmd.ErrOrStderr(), a.Registry()); derr != nil {
			a.Logger().Warn("failed to dump metrics", "error", derr)
		}
	}
	return err
}

// dumpMetrics writes the registry in the Prometheus text exposition format.
func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (o *RootOptions) output(cmd *cobra.Command) *Output {
	return &Output{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
