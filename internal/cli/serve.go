package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/xiaot623/assistdesk/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long: `Serve the JSON and websocket API the dashboard front end drives, plus
/health and /metrics.`,
		Args: commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, rootOpts, cmd, true)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				a.cfg.HTTPHost = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.HTTPPort = port
			}
			return runServe(ctx, a)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen address (default HTTP_HOST or 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default HTTP_PORT or 8080)")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	if err := a.cfg.ValidateCredentials(); err != nil {
		a.log.Warn("platform credential is not usable, remote operations will fail", logrus.Fields{"error": err.Error()})
	}

	e := httptransport.NewServer(a.svc, a.hub, a.metrics, a.log,
		httptransport.WithAllowedOrigins(a.cfg.AllowedOrigins...))
	addr := net.JoinHostPort(a.cfg.HTTPHost, strconv.Itoa(a.cfg.HTTPPort))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info("dashboard API started", logrus.Fields{"addr": addr, "mock": a.cfg.MockMode()})
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return shutdown(shutdownCtx, e, a.Close)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "serve failed", err)
	}
	return nil
}

// shutdown drains in-flight requests before the sessions and history store
// they use are closed.
func shutdown(ctx context.Context, srv interface{ Shutdown(context.Context) error }, closeApp func(context.Context)) error {
	err := srv.Shutdown(ctx)
	closeApp(ctx)
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
