package cmd

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akave-ai/frontlog/internal/config"
	"github.com/akave-ai/frontlog/internal/logger"
	"github.com/akave-ai/frontlog/internal/observability"
	"github.com/akave-ai/frontlog/internal/server"
	"github.com/akave-ai/frontlog/internal/service"
)

func newServeCmd() *cobra.Command {
	var port, logDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingest and retrieve API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			if logDir != "" {
				cfg.Storage.LogDir = logDir
			}

			log := logger.New(cfg.Observability)

			store, err := openStore(cfg)
			if err != nil {
				log.Error().Err(err).Str("dir", cfg.Storage.LogDir).Msg("log directory")
				return err
			}

			nrApp, err := observability.NewApplication(cfg.Observability)
			if err != nil {
				log.Warn().Err(err).Msg("new relic disabled")
				nrApp = nil
			}

			svc := service.NewLogService(store, log)
			srv := server.New(cfg, svc, log, nrApp)
			srv.RegisterOnShutdown(func() { log.Info().Msg("shutdown complete") })

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("log_dir", store.Dir()).
				Bool("new_relic", nrApp != nil).
				Msg("starting frontlog")
			if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("server exited")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides server.port)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "log directory (overrides storage.log_dir)")
	return cmd
}
