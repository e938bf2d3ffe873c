package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/catalog"
	"github.com/xiaot623/assistdesk/internal/service"
)

// NewAgentsCommand creates the agents command.
func NewAgentsCommand(rootOpts *RootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the agent catalog",
		Long: `List the named agents from the catalog file with their flags. Entries
with a placeholder or shared id are listed but guarded against calls and edits.
--verify checks every id against the platform.`,
		Args: commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if verify {
					return runVerifyAgents(ctx, a, out)
				}
				report := a.svc.ListAgents()
				return out.Success(report, func(w *tabwriter.Writer) {
					writeAgents(w, report)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "check every catalog id against the platform")

	return cmd
}

func runVerifyAgents(ctx context.Context, a *app, out *OutputFormatter) error {
	results, err := a.svc.VerifyAgents(ctx)
	if err != nil {
		return err
	}
	if err := out.Success(results, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "AGENT\tID\tSTATUS\tREMOTE NAME")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Agent, r.ID, r.Status, r.RemoteName)
		}
	}); err != nil {
		return err
	}
	for _, r := range results {
		if r.Status == catalog.VerifyMissing {
			return NewExitError(ExitFailure, "some catalog ids do not exist on the platform")
		}
	}
	return nil
}

func writeAgents(w *tabwriter.Writer, report service.AgentsReport) {
	fmt.Fprintln(w, "NAME\tID\tCATEGORY\tFLAGS")
	for _, a := range report.Agents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.ID, a.Category, flagList(a.Flags))
	}
	if len(report.Findings) > 0 {
		fmt.Fprintln(w)
		for _, f := range report.Findings {
			fmt.Fprintf(w, "warning: %s\t%s\n", f.Kind, f.Detail)
		}
	}
}

func flagList(f catalog.Flags) string {
	var flags []string
	if f.Placeholder {
		flags = append(flags, "placeholder")
	}
	if f.Duplicate {
		flags = append(flags, "duplicate")
	}
	if f.Protected {
		flags = append(flags, "protected")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
