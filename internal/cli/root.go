// Package cli implements the finn command line: running a device engine and
// one-shot operations against its local state and CORE.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dmitrijs2005/finn/internal/device/config"
	"github.com/dmitrijs2005/finn/internal/device/engine"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/spf13/cobra"
)

var validFormats = []string{"text", "json"}

// RootOptions holds the global flags and the configuration they produce.
type RootOptions struct {
	ConfigPath    string
	Format        string
	AskPassphrase bool

	flags *config.Flags
	cfg   *config.Config

	// Stdin feeds the passphrase prompt. Defaults to os.Stdin.
	Stdin io.Reader
	// EngineOptions is used by every command that builds an engine.
	EngineOptions engine.Options
}

// NewRootCommand creates the finn command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finn",
		Short: "finn device agent",
		Long: `finn pairs a device with CORE, advertises it over Bluetooth LE and
triggers the actions CORE has enabled for it, queueing triggers while offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a JSON or YAML config file")
	pf.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	pf.BoolVar(&opts.AskPassphrase, "ask-passphrase", false, "prompt for the passphrase sealing the device key")
	opts.flags = config.AddFlags(pf)

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newTriggerCommand(opts))
	cmd.AddCommand(newActionsCommand(opts))
	cmd.AddCommand(newMessagesCommand(opts))
	cmd.AddCommand(newIdentityCommand(opts))
	cmd.AddCommand(newQueueCommand(opts))
	cmd.AddCommand(newResetCommand(opts))

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) error {
	if !slices.Contains(validFormats, o.Format) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q", o.Format), nil)
	}

	cfg, err := config.Load(o.ConfigPath, o.flags)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	if o.AskPassphrase {
		in := o.Stdin
		if in == nil {
			in = os.Stdin
		}
		pass, err := readPassphrase(in, cmd.ErrOrStderr())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read passphrase", err)
		}
		cfg.KeyPassphrase = pass
	}

	o.cfg = cfg
	return nil
}

func (o *RootOptions) logger(cmd *cobra.Command) logging.Logger {
	if o.EngineOptions.Logger != nil {
		return o.EngineOptions.Logger
	}
	return logging.New(cmd.ErrOrStderr(), o.cfg.LogFormat, o.cfg.LogLevel)
}

func (o *RootOptions) printer(cmd *cobra.Command) printer {
	return printer{format: o.Format, w: cmd.OutOrStdout()}
}

func (o *RootOptions) newEngine(cmd *cobra.Command) (*engine.Engine, error) {
	eo := o.EngineOptions
	eo.Logger = o.logger(cmd)

	e, err := engine.New(*o.cfg, eo)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return e, nil
}

// withOpenEngine opens an engine for a one-shot command and stops it after fn.
func (o *RootOptions) withOpenEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) error {
	e, err := o.newEngine(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.Open(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to open device", err)
	}
	defer func() { _ = e.Stop(context.WithoutCancel(ctx)) }()

	return fn(ctx, e)
}
