package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/catalog"
	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/logger"
	"github.com/xiaot623/assistdesk/internal/metrics"
	"github.com/xiaot623/assistdesk/internal/policy"
	"github.com/xiaot623/assistdesk/internal/repository"
	"github.com/xiaot623/assistdesk/internal/service"
)

// app is the wired service graph shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	hub      *hub.Hub
	store    repository.Store
	platform vapi.Platform
	svc      *service.Service
}

// loadConfig loads the env file and the configuration.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load environment", err)
	}
	return config.Load(), nil
}

func newLogger(opts *RootOptions, cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.LogFormat)
}

// newApp wires every component. withHub adds the websocket event hub, which
// only the server runs.
func newApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, withHub bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := newLogger(opts, cmd, cfg)

	cat, err := catalog.Load(cfg.AgentCatalogPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, WrapExitError(ExitCommandError, "invalid agent catalog", err)
		}
		log.Warn("agent catalog not found, continuing without one", logrus.Fields{"path": cfg.AgentCatalogPath})
		cat = catalog.New(nil)
	}
	for _, f := range cat.Validate() {
		log.Debug("agent catalog finding", logrus.Fields{"kind": string(f.Kind), "agent": f.Agent, "id": f.ID})
	}

	policyEngine, err := policy.LoadEngine(ctx, cfg.GuardPolicyPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load guard policy", err)
	}

	store, err := repository.NewSQLiteStore(cfg.HistoryDSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open call history", err)
	}

	m := metrics.New()
	platform := vapi.NewPlatform(cfg, log, vapi.WithObserver(m.ObserveRequest))

	var h *hub.Hub
	if withHub {
		h = hub.NewHub(log)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		hub:      h,
		store:    store,
		platform: platform,
		svc:      service.New(platform, cat, policyEngine, store, h, m, cfg, log),
	}, nil
}

// Close stops running calls and closes the history store.
func (a *app) Close(ctx context.Context) {
	a.svc.CloseAll(ctx)
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close call history", logrus.Fields{"error": err.Error()})
	}
}

// runWithApp builds the app and runs fn. Errors without an exit code count
// as failures.
func runWithApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts, cmd)

	a, err := newApp(ctx, opts, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := fn(ctx, a, out); err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			err = WrapExitError(ExitFailure, cmd.CommandPath()+" failed", err)
		}
		return err
	}
	return nil
}
