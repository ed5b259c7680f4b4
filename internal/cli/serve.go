package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaot623/gogo/navigator/internal/config"
	"github.com/xiaot623/gogo/navigator/internal/logging"
	"github.com/xiaot623/gogo/navigator/internal/telemetry"
	httpserver "github.com/xiaot623/gogo/navigator/internal/transport/http"
	v1 "github.com/xiaot623/gogo/navigator/internal/transport/http/v1"
	"github.com/xiaot623/gogo/navigator/internal/transport/ws"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}
			return serve(cmd.Context(), v, cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides http_port)")
	return cmd
}

func serve(parent context.Context, v *viper.Viper, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, logCloser, err := logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: true,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry.Enabled, cfg.Telemetry.Dir, v1.Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	if file := v.ConfigFileUsed(); file != "" {
		logger.Info().Str("file", file).Msg("config loaded")
		config.Watch(v, func(next *config.Config) {
			if err := logging.SetLevel(next.Log.Level); err != nil {
				logger.Warn().Err(err).Msg("ignoring invalid log level")
				return
			}
			logger.Info().Str("level", next.Log.Level).Msg("config reloaded")
		}, func(err error) {
			logger.Warn().Err(err).Msg("ignoring invalid config reload")
		})
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.service.RunSessionSweeper(ctx, cfg.Session.SweepInterval)

	wsServer := ws.NewServer(cfg.WebSocket, a.service, cfg.Agent.Timeout+30*time.Second, logging.Component(logger, "ws"))
	e := httpserver.NewServer(a.service, wsServer, logging.Component(logger, "http"))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info().Str("addr", addr).Msg("navigator listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info().Msg("shutting down navigator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to shutdown server gracefully")
	}
	logger.Info().Msg("navigator stopped")
	return nil
}
