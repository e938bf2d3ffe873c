package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/hub"
)

// NewDialCommand creates the dial command.
func NewDialCommand(rootOpts *RootOptions) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "dial <agent-or-id>",
		Short: "Run a live call session in the foreground",
		Long: `Launch the call process for an agent and stream its output until the call
ends. Ctrl-C stops the call. --var sets prompt variables; customer.number and
phoneNumberId place an outbound phone call instead of a web call.`,
		Args: commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseVars(vars)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --var", err)
			}
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				return runDial(ctx, a, out, args[0], overrides)
			})
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable value as key=value (repeatable)")

	return cmd
}

func runDial(ctx context.Context, a *app, out *OutputFormatter, agent string, overrides map[string]string) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := a.svc.NewSession()
	if out.Format != "json" {
		sess.SetListener(func(ev hub.Event) {
			if data, ok := ev.Data.(hub.OutputData); ok {
				for _, line := range data.Lines {
					fmt.Fprintln(out.Writer, line)
				}
				if data.Dropped > 0 {
					out.VerboseLog("%d output lines dropped", data.Dropped)
				}
				return
			}
			out.VerboseLog("event: %s", ev.Type)
		})
	}

	rec, err := a.svc.StartCall(ctx, sess, agent, overrides)
	if err != nil {
		return err
	}
	out.VerboseLog("call process %d started for %s", rec.PID, rec.AgentName)

	select {
	case <-sess.CallDone():
	case <-sigCtx.Done():
		fmt.Fprintln(out.GetErrWriter(), "stopping call...")
	}

	// Stop is a no-op when the call already ended; the record comes from
	// the history either way.
	if _, err := a.svc.StopCall(context.Background(), sess); err != nil {
		return err
	}
	final, err := a.store.GetCallRecord(context.Background(), rec.ID)
	if err != nil {
		return err
	}

	if err := out.Success(final, func(w *tabwriter.Writer) {
		writeCallRecords(w, []domain.CallRecord{*final})
	}); err != nil {
		return err
	}
	if final.ExitCode != nil && *final.ExitCode != 0 && final.Status == domain.CallRecordEnded {
		return NewExitError(ExitFailure, fmt.Sprintf("call process exited with code %d", *final.ExitCode))
	}
	return nil
}

// parseVars turns key=value pairs into overrides.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
