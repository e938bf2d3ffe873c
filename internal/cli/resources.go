package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// NewCallsCommand creates the calls command group.
func NewCallsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Browse platform call logs",
	}

	var (
		assistant string
		limit     int
		since     time.Duration
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List call logs",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := vapi.ListFilter{Limit: limit, AssistantID: assistant}
			if since > 0 {
				filter.CreatedAtGt = time.Now().Add(-since)
			}
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				calls, err := a.svc.ListCalls(ctx, filter)
				if err != nil {
					return err
				}
				return out.Success(calls, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "ID\tASSISTANT\tTYPE\tSTATUS\tCREATED\tDURATION\tCOST")
					for _, c := range calls {
						created := "-"
						if c.CreatedAt != nil {
							created = c.CreatedAt.Local().Format(time.DateTime)
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
							c.ID, c.AssistantID, c.Type, c.Status, created, c.Duration().Round(time.Second), domain.Value(c.Cost))
					}
				})
			})
		},
	}
	list.Flags().StringVar(&assistant, "assistant", "", "only calls of this agent or assistant id")
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of calls")
	list.Flags().DurationVar(&since, "since", 0, "only calls created within this duration")

	get := &cobra.Command{
		Use:   "get <call-id>",
		Short: "Show one call log",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				call, err := a.svc.GetCall(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Success(call, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "id\t%s\n", call.ID)
					fmt.Fprintf(w, "assistant\t%s\n", call.AssistantID)
					fmt.Fprintf(w, "status\t%s\n", call.Status)
					fmt.Fprintf(w, "ended reason\t%s\n", call.EndedReason)
					fmt.Fprintf(w, "duration\t%s\n", call.Duration().Round(time.Second))
					if call.Customer != nil {
						fmt.Fprintf(w, "customer\t%s\n", call.Customer.Number)
					}
				})
			})
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

// NewPhoneNumbersCommand creates the phone-numbers command group.
func NewPhoneNumbersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phone-numbers",
		Short: "Manage phone numbers",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List phone numbers",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				numbers, err := a.svc.ListPhoneNumbers(ctx, limit)
				if err != nil {
					return err
				}
				return out.Success(numbers, func(w *tabwriter.Writer) {
					writePhoneNumbers(w, numbers)
				})
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of phone numbers")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one phone number",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				p, err := a.svc.GetPhoneNumber(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Success(p, func(w *tabwriter.Writer) {
					writePhoneNumbers(w, []domain.PhoneNumber{*p})
				})
			})
		},
	}

	var number, provider, name, assistant string
	create := &cobra.Command{
		Use:   "create",
		Short: "Provision a phone number",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"provider": provider}
			if number != "" {
				payload["number"] = number
			}
			if name != "" {
				payload["name"] = name
			}
			if assistant != "" {
				payload["assistantId"] = assistant
			}
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				p, err := a.svc.CreatePhoneNumber(ctx, payload)
				if err != nil {
					return err
				}
				return out.Success(p, func(w *tabwriter.Writer) {
					writePhoneNumbers(w, []domain.PhoneNumber{*p})
				})
			})
		},
	}
	create.Flags().StringVar(&number, "number", "", "number in E.164 form")
	create.Flags().StringVar(&provider, "provider", "vapi", "number provider")
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&assistant, "assistant", "", "agent or assistant id answering the number")

	var updName, updAssistant string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a phone number's name or assistant",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{}
			if cmd.Flags().Changed("name") {
				payload["name"] = updName
			}
			if cmd.Flags().Changed("assistant") {
				payload["assistantId"] = updAssistant
			}
			if len(payload) == 0 {
				return NewExitError(ExitCommandError, "nothing to update: pass --name or --assistant")
			}
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				p, err := a.svc.UpdatePhoneNumber(ctx, args[0], payload)
				if err != nil {
					return err
				}
				return out.Success(p, func(w *tabwriter.Writer) {
					writePhoneNumbers(w, []domain.PhoneNumber{*p})
				})
			})
		},
	}
	update.Flags().StringVar(&updName, "name", "", "display name")
	update.Flags().StringVar(&updAssistant, "assistant", "", "agent or assistant id answering the number")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Release a phone number",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.svc.DeletePhoneNumber(ctx, args[0]); err != nil {
					return err
				}
				return out.Success(map[string]string{"deleted": args[0]}, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "deleted %s\n", args[0])
				})
			})
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

func writePhoneNumbers(w *tabwriter.Writer, numbers []domain.PhoneNumber) {
	fmt.Fprintln(w, "ID\tNUMBER\tPROVIDER\tNAME\tASSISTANT")
	for _, p := range numbers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Number, p.Provider, p.Name, p.AssistantID)
	}
}

// NewSquadsCommand creates the squads command group.
func NewSquadsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "squads",
		Short: "Browse squads",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List squads",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				squads, err := a.svc.ListSquads(ctx)
				if err != nil {
					return err
				}
				return out.Success(squads, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "ID\tNAME\tMEMBERS")
					for _, s := range squads {
						ids := make([]string, 0, len(s.Members))
						for _, m := range s.Members {
							ids = append(ids, m.AssistantID)
						}
						fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, strings.Join(ids, ","))
					}
				})
			})
		},
	})
	return cmd
}

// NewToolsCommand creates the tools command group.
func NewToolsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Browse tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tools",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				tools, err := a.svc.ListTools(ctx)
				if err != nil {
					return err
				}
				return out.Success(tools, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "ID\tTYPE\tFUNCTION\tDESCRIPTION")
					for _, t := range tools {
						name, desc := "-", ""
						if t.Function != nil {
							name, desc = t.Function.Name, t.Function.Description
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Type, name, desc)
					}
				})
			})
		},
	})
	return cmd
}
