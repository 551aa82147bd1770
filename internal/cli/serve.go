package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds the HTTP drain and the tracer flush on exit.
const shutdownGrace = 10 * time.Second

// NewServeCmd creates the serve command, which runs the poller, the
// retention sweeper and the acknowledgement API until SIGINT or SIGTERM.
func NewServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the hijack poller, escalation pipeline and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := WireService(ctx, cfg, app.versionInfo.Version)
			if err != nil {
				return err
			}
			return svc.Run(ctx)
		},
	}
}

// Run starts every component and blocks until ctx is done or the HTTP
// server fails, then shuts down in reverse order.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopSweeper, err := s.Sweeper.Start(ctx)
	if err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		return err
	}

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		_ = s.Poller.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Server.Addr).Msg("http server listening")
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case runErr = <-serveErr:
		log.Error().Err(runErr).Msg("http server failed")
	}

	cancel()
	<-pollerDone
	stopSweeper()

	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer done()
	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := s.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("component shutdown")
	}
	log.Info().Msg("stopped")
	return runErr
}
