package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/finn/internal/device/engine"
	"github.com/spf13/cobra"
)

func newActionsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the actions CORE has enabled for the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withOpenEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				actions, err := e.Actions(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to fetch actions", err)
				}
				rows := make([][]string, 0, len(actions))
				for _, a := range actions {
					rows = append(rows, []string{a.ActionID, a.ActionName, string(a.Frequency)})
				}
				return opts.printer(cmd).table(actions, []string{"ID", "NAME", "FREQUENCY"}, rows)
			})
		},
	}
}

func newMessagesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "List messages CORE holds for the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withOpenEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				msgs, err := e.Messages(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to fetch messages", err)
				}
				rows := make([][]string, 0, len(msgs))
				for _, m := range msgs {
					rows = append(rows, []string{m.MessageID, m.Event, strconv.Itoa(m.Delivered), m.Payload})
				}
				return opts.printer(cmd).table(msgs, []string{"ID", "EVENT", "DELIVERED", "PAYLOAD"}, rows)
			})
		},
	}
}

type identityOutput struct {
	MakerID   string `json:"makerID"`
	DeviceID  string `json:"deviceID"`
	PublicKey string `json:"publicKey"`
}

func newIdentityCommand(opts *RootOptions) *cobra.Command {
	var qr bool

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show the device identity",
		Long: `Identity prints the maker id, device id and public key, creating them on
first use. With --qr it prints the pairing payload encoded in the QR code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withOpenEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				p := opts.printer(cmd)
				if qr {
					b, err := e.PairingPayload(ctx)
					if err != nil {
						return WrapExitError(ExitFailure, "failed to build pairing payload", err)
					}
					_, err = fmt.Fprintln(p.w, string(b))
					return err
				}

				id := e.Identity()
				pub, err := id.PublicKeyBase64()
				if err != nil {
					return WrapExitError(ExitFailure, "failed to encode public key", err)
				}
				out := identityOutput{MakerID: id.MakerID, DeviceID: id.DeviceID, PublicKey: pub}
				if p.format == "json" {
					return p.json(out)
				}
				_, err = fmt.Fprintf(p.w, "maker id:   %s\ndevice id:  %s\npublic key: %s\n", out.MakerID, out.DeviceID, out.PublicKey)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&qr, "qr", false, "print the pairing QR payload")
	return cmd
}

type queueOutput struct {
	Pending   int `json:"pending"`
	Attempted int `json:"attempted,omitempty"`
	Succeeded int `json:"succeeded,omitempty"`
	Failed    int `json:"failed,omitempty"`
}

func newQueueCommand(opts *RootOptions) *cobra.Command {
	var drain bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show or drain the offline trigger queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withOpenEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				var out queueOutput
				if drain {
					res, err := e.DrainQueue(ctx)
					if err != nil {
						return WrapExitError(ExitFailure, "failed to drain queue", err)
					}
					out.Attempted, out.Succeeded, out.Failed = res.Attempted, res.Succeeded, res.Failed
				}
				n, err := e.PendingTriggers(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read queue", err)
				}
				out.Pending = n

				p := opts.printer(cmd)
				if p.format == "json" {
					return p.json(out)
				}
				if drain {
					fmt.Fprintf(p.w, "resubmitted %d of %d, %d failed\n", out.Succeeded, out.Attempted, out.Failed)
				}
				_, err = fmt.Fprintf(p.w, "%d pending\n", out.Pending)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&drain, "drain", false, "resubmit queued triggers now")
	return cmd
}

func newResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the device identity, catalog and queued triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return WrapExitError(ExitCommandError, "reset deletes the device identity, pass --yes to confirm", nil)
			}
			e, err := opts.newEngine(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := e.Destroy(ctx); err != nil {
				return WrapExitError(ExitFailure, "reset failed", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "device data deleted")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
