package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		asCSV bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show local call session history",
		Long: `Show the call sessions launched from this machine, newest first. History
persists only when HISTORY_DSN points at a file. --csv writes the whole
history as CSV.`,
		Args: commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if asCSV {
					return a.svc.ExportCallHistory(ctx, out.Writer)
				}
				records, err := a.svc.CallHistory(ctx, limit)
				if err != nil {
					return err
				}
				return out.Success(records, func(w *tabwriter.Writer) {
					writeCallRecords(w, records)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of records (0 for all)")

	return cmd
}

func writeCallRecords(w *tabwriter.Writer, records []domain.CallRecord) {
	fmt.Fprintln(w, "STARTED\tAGENT\tSTATUS\tPID\tDURATION\tEXIT")
	for _, r := range records {
		exit := "-"
		if r.ExitCode != nil {
			exit = fmt.Sprint(*r.ExitCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.AgentName, r.Status, r.PID, r.Duration.Round(100*time.Millisecond), exit)
	}
}
