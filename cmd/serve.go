package cmd

import (
	"context"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/tracer"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/prometheus"
	"github.com/Layr-Labs/delegate-tracker/pkg/queryServer"
	"github.com/Layr-Labs/delegate-tracker/pkg/shutdown"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the delegation ledger once and serve queries over http",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, l, sink := bootstrap()

		tracer.StartTracer(cfg.DataDogConfig.TracingConfig.Enabled)
		defer tracer.StopTracer()

		if err := cfg.ValidateLedgerConfig(); err != nil {
			l.Sugar().Fatalw("Invalid configuration", zap.Error(err))
		}

		ctx := context.Background()

		driver, report, err := prepareQueryDriver(ctx, cfg, "http", sink, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to build delegation ledger", zap.Error(err))
		}

		server := queryServer.NewQueryServer(driver, report, &queryServer.QueryServerConfig{
			Port:         cfg.HttpServerConfig.Port,
			ClampToToday: cfg.QueryConfig.ClampToToday,
		}, sink, l)
		if err := server.Start(); err != nil {
			l.Sugar().Fatalw("Failed to start query server", zap.Error(err))
		}

		promChan := make(chan bool, 1)
		if cfg.PrometheusConfig.Enabled {
			pServer := prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			if err := pServer.Start(promChan); err != nil {
				l.Sugar().Fatalw("Failed to start prometheus server", zap.Error(err))
			}
		}

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				l.Sugar().Errorw("Failed to stop query server", zap.Error(err))
			}
			promChan <- true
			sink.Flush()
		}, time.Second*5, l)
	},
}
