package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/finn/internal/device/engine"
	"github.com/spf13/cobra"
)

type triggerOutput struct {
	ActionID string `json:"actionID"`
	QueueID  string `json:"queueID"`
	Queued   bool   `json:"queued"`
	Drained  int    `json:"drained,omitempty"`
}

func newTriggerCommand(opts *RootOptions) *cobra.Command {
	var alternativeID string

	cmd := &cobra.Command{
		Use:   "trigger <action-id>",
		Short: "Trigger an action",
		Long: `Trigger sends one action trigger to CORE, or queues it when CORE is not
reachable. Multi-pair devices need --alternative-id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withOpenEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				res, err := e.TriggerAction(ctx, args[0], alternativeID)
				if err != nil {
					return WrapExitError(ExitFailure, "trigger rejected", err)
				}

				out := triggerOutput{ActionID: args[0], QueueID: res.QueueID, Queued: res.Queued}
				if res.Drain != nil {
					out.Drained = res.Drain.Succeeded
				}

				p := opts.printer(cmd)
				if p.format == "json" {
					return p.json(out)
				}
				state := "sent"
				if out.Queued {
					state = "queued"
				}
				_, err = fmt.Fprintf(p.w, "%s %s (queue id %s)\n", out.ActionID, state, out.QueueID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&alternativeID, "alternative-id", "a", "", "app user identifier on multi-pair devices")
	return cmd
}
