package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xiaot623/assistdesk/internal/diff"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// NewAssistantsCommand creates the assistants command group.
func NewAssistantsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assistants",
		Aliases: []string{"assistant"},
		Short:   "Manage assistant configurations",
	}

	cmd.AddCommand(newAssistantsListCommand(rootOpts))
	cmd.AddCommand(newAssistantsGetCommand(rootOpts))
	cmd.AddCommand(newAssistantsCreateCommand(rootOpts))
	cmd.AddCommand(newAssistantsEditCommand(rootOpts))
	cmd.AddCommand(newAssistantsCloneCommand(rootOpts))
	cmd.AddCommand(newAssistantsDeleteCommand(rootOpts))

	return cmd
}

func newAssistantsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assistants",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				assistants, err := a.svc.ListAssistants(ctx, true)
				if err != nil {
					return err
				}
				return out.Success(assistants, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "ID\tNAME\tMODEL\tVOICE")
					for _, as := range assistants {
						model, voice := "-", "-"
						if as.Model != nil {
							model = domain.Value(as.Model.Model)
						}
						if as.Voice != nil {
							voice = domain.Value(as.Voice.VoiceID)
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", as.AssistantID(), as.DisplayName("(unnamed)"), model, voice)
					}
				})
			})
		},
	}
}

func newAssistantsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <agent-or-id>",
		Short: "Show one assistant",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				as, err := a.svc.GetAssistant(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Success(as, func(w *tabwriter.Writer) {
					writeForm(w, as.AssistantID(), diff.FormFromConfig(*as))
				})
			})
		},
	}
}

func newAssistantsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create --file <assistant.json>",
		Short: "Create an assistant from a JSON configuration",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read assistant file", err)
			}
			var cfg domain.AssistantConfig
			if err := json.Unmarshal(data, &cfg); err != nil {
				return WrapExitError(ExitCommandError, "invalid assistant file", err)
			}
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				created, err := a.svc.CreateAssistant(ctx, cfg)
				if err != nil {
					return err
				}
				return out.Success(created, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "created assistant %s (%s)\n", created.DisplayName("(unnamed)"), created.AssistantID())
				})
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "assistant configuration JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newAssistantsCloneCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "clone <agent-or-id>",
		Short: "Copy an assistant under a new name",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				created, err := a.svc.CloneAssistant(ctx, args[0], name)
				if err != nil {
					return err
				}
				return out.Success(created, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "cloned into %s (%s)\n", created.DisplayName("(unnamed)"), created.AssistantID())
				})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", `name of the copy (default "<name> (Copy)")`)

	return cmd
}

func newAssistantsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-or-id>",
		Short: "Delete an assistant",
		Args:  commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.svc.DeleteAssistant(ctx, nil, args[0]); err != nil {
					return err
				}
				return out.Success(map[string]string{"deleted": args[0]}, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "deleted %s\n", args[0])
				})
			})
		},
	}
}

// editFlags binds one flag per form field.
type editFlags struct {
	name, firstMessage, systemPrompt                          string
	modelProvider, model                                      string
	temperature                                               float64
	maxTokens                                                 int
	voiceProvider, voiceID                                    string
	voiceSpeed                                                float64
	transcriberProvider, transcriberModel, transcriberLanguage string
	backgroundSound                                           string
	endCallPhrases                                            []string
	silenceTimeout, maxDuration                               float64
	recording, hipaa                                          bool
	serverURL, serverSecret                                   string
}

func (e *editFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&e.name, "name", "", "assistant name")
	fs.StringVar(&e.firstMessage, "first-message", "", "first message spoken on the call")
	fs.StringVar(&e.systemPrompt, "system-prompt", "", "system prompt")
	fs.StringVar(&e.modelProvider, "model-provider", "", "model provider")
	fs.StringVar(&e.model, "model", "", "model name")
	fs.Float64Var(&e.temperature, "temperature", 0, "model temperature")
	fs.IntVar(&e.maxTokens, "max-tokens", 0, "model max tokens")
	fs.StringVar(&e.voiceProvider, "voice-provider", "", "voice provider")
	fs.StringVar(&e.voiceID, "voice-id", "", "voice id")
	fs.Float64Var(&e.voiceSpeed, "voice-speed", 0, "voice speed")
	fs.StringVar(&e.transcriberProvider, "transcriber-provider", "", "transcriber provider")
	fs.StringVar(&e.transcriberModel, "transcriber-model", "", "transcriber model")
	fs.StringVar(&e.transcriberLanguage, "transcriber-language", "", "transcriber language")
	fs.StringVar(&e.backgroundSound, "background-sound", "", "background sound (off|office)")
	fs.StringSliceVar(&e.endCallPhrases, "end-call-phrases", nil, "phrases that end the call, comma separated")
	fs.Float64Var(&e.silenceTimeout, "silence-timeout", 0, "silence timeout in seconds")
	fs.Float64Var(&e.maxDuration, "max-duration", 0, "maximum call duration in seconds")
	fs.BoolVar(&e.recording, "recording", false, "record calls")
	fs.BoolVar(&e.hipaa, "hipaa", false, "HIPAA mode")
	fs.StringVar(&e.serverURL, "server-url", "", "server URL for platform webhooks")
	fs.StringVar(&e.serverSecret, "server-secret", "", "server URL secret")
}

// form puts only the flags the user set on the form.
func (e *editFlags) form(fs *pflag.FlagSet) diff.AssistantForm {
	var f diff.AssistantForm
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("name", func() { f.Name = &e.name })
	set("first-message", func() { f.FirstMessage = &e.firstMessage })
	set("system-prompt", func() { f.SystemPrompt = &e.systemPrompt })
	set("model-provider", func() { f.ModelProvider = &e.modelProvider })
	set("model", func() { f.Model = &e.model })
	set("temperature", func() { f.Temperature = &e.temperature })
	set("max-tokens", func() { f.MaxTokens = &e.maxTokens })
	set("voice-provider", func() { f.VoiceProvider = &e.voiceProvider })
	set("voice-id", func() { f.VoiceID = &e.voiceID })
	set("voice-speed", func() { f.VoiceSpeed = &e.voiceSpeed })
	set("transcriber-provider", func() { f.TranscriberProvider = &e.transcriberProvider })
	set("transcriber-model", func() { f.TranscriberModel = &e.transcriberModel })
	set("transcriber-language", func() { f.TranscriberLanguage = &e.transcriberLanguage })
	set("background-sound", func() { f.BackgroundSound = &e.backgroundSound })
	set("end-call-phrases", func() { f.EndCallPhrases = &e.endCallPhrases })
	set("silence-timeout", func() { f.SilenceTimeoutSeconds = &e.silenceTimeout })
	set("max-duration", func() { f.MaxDurationSeconds = &e.maxDuration })
	set("recording", func() { f.RecordingEnabled = &e.recording })
	set("hipaa", func() { f.HipaaEnabled = &e.hipaa })
	set("server-url", func() { f.ServerURL = &e.serverURL })
	set("server-secret", func() { f.ServerSecret = &e.serverSecret })
	return f
}

func newAssistantsEditCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		flags  editFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "edit <agent-or-id> [field flags]",
		Short: "Change assistant fields",
		Long: `Change assistant fields. Only the flags given are compared with the current
configuration, and only values that differ are sent. --dry-run prints the
update payload without sending it.`,
		Args: commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := flags.form(cmd.Flags())
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				sess := a.svc.NewSession()
				if _, err := a.svc.LoadAssistant(ctx, sess, args[0]); err != nil {
					return err
				}

				if dryRun {
					payload, err := a.svc.PreviewSave(ctx, sess, form)
					if err != nil {
						return err
					}
					return out.Success(payload, func(w *tabwriter.Writer) {
						writePayload(w, payload)
					})
				}

				res, err := a.svc.SaveAssistant(ctx, sess, form)
				if err != nil {
					return err
				}
				return out.Success(res, func(w *tabwriter.Writer) {
					if res.NoOp {
						fmt.Fprintln(w, "no changes")
						return
					}
					fmt.Fprintf(w, "updated %s: %v\n", res.Assistant.AssistantID(), res.Fields)
				})
			})
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the update payload without sending it")

	return cmd
}

func writePayload(w *tabwriter.Writer, payload diff.UpdatePayload) {
	if payload.IsEmpty() {
		fmt.Fprintln(w, "no changes")
		return
	}
	data, _ := json.MarshalIndent(payload, "", "  ")
	fmt.Fprintln(w, string(data))
}

func writeForm(w *tabwriter.Writer, id string, f diff.AssistantForm) {
	row := func(label string, v interface{}) {
		fmt.Fprintf(w, "%s\t%v\n", label, v)
	}
	row("id", id)
	row("name", domain.Value(f.Name))
	row("first message", domain.Value(f.FirstMessage))
	row("system prompt", domain.Value(f.SystemPrompt))
	row("model", domain.Value(f.ModelProvider)+"/"+domain.Value(f.Model))
	row("temperature", domain.Value(f.Temperature))
	row("max tokens", domain.Value(f.MaxTokens))
	row("voice", domain.Value(f.VoiceProvider)+"/"+domain.Value(f.VoiceID))
	row("transcriber", domain.Value(f.TranscriberProvider)+"/"+domain.Value(f.TranscriberModel))
	row("end call phrases", domain.Value(f.EndCallPhrases))
	row("max duration", domain.Value(f.MaxDurationSeconds))
	row("recording", domain.Value(f.RecordingEnabled))
}
