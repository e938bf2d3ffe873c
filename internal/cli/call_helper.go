package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/callsession"
	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/helper"
)

// NewCallHelperCommand creates the hidden call-helper command, the child
// process a call session runs.
func NewCallHelperCommand(rootOpts *RootOptions) *cobra.Command {
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:    "call-helper <launch-spec-json>",
		Short:  "Place one call and report its status (launched by call sessions)",
		Hidden: true,
		Args:   commandArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := callsession.ParseLaunchSpec(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid launch spec", err)
			}

			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if spec.BaseURL != "" {
				cfg.BaseURL = spec.BaseURL
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return WrapExitError(ExitFailure, "cannot place call", err)
			}
			log := newLogger(rootOpts, cmd, cfg)

			platform := vapi.NewPlatform(cfg, log)
			if mock, ok := platform.(*vapi.MockClient); ok {
				// A fresh mock knows nothing about the parent's assistants.
				mock.SeedAssistant(spec.AssistantID, domain.AssistantConfig{Name: domain.Ptr(spec.AgentName)})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
			defer stop()

			if err := helper.Run(ctx, spec, platform, cmd.OutOrStdout(), pollInterval); err != nil {
				return WrapExitError(ExitFailure, "call failed", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", helper.DefaultPollInterval, "call status poll interval")

	return cmd
}
