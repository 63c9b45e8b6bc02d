package cmd

import (
	"context"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/internal/tracer"
	"github.com/Layr-Labs/delegate-tracker/internal/version"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/delegate-tracker/pkg/postgres"
	"github.com/Layr-Labs/delegate-tracker/pkg/runtime"
	pgStorage "github.com/Layr-Labs/delegate-tracker/pkg/storage/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch Lock and Free events of every roster contract into PostgreSQL",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, l, sink := bootstrap()
		defer sink.Flush()

		tracer.StartTracer(cfg.DataDogConfig.TracingConfig.Enabled)
		defer tracer.StopTracer()

		// events always come from etherscan when syncing
		cfg.LedgerConfig.Source = config.LedgerSource_Etherscan
		if err := cfg.ValidateLedgerConfig(); err != nil {
			l.Sugar().Fatalw("Invalid configuration", zap.Error(err))
		}

		ctx := context.Background()

		_, grm, err := postgres.ConnectAndMigrate(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup postgres connection", zap.Error(err))
		}
		store := pgStorage.NewPostgresEventStore(grm, l, cfg)

		rt := runtime.NewTrackerRuntime(grm, store, cfg, l)
		if err := rt.ValidateAndUpdateTrackerVersion(ctx, version.GetVersion()); err != nil {
			l.Sugar().Fatalw("Failed to validate tracker version", zap.Error(err))
		}

		r, err := loadRoster(cfg, sink, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to load roster", zap.Error(err))
		}

		builder := newLedgerBuilder(cfg, sink, l)
		results := builder.FetchContracts(ctx, r.ContractAddresses())

		failed := 0
		var persisted int64
		for _, res := range results {
			if res.Err != nil {
				failed++
				l.Sugar().Errorw("Skipping contract that could not be fetched",
					zap.String("contract", res.ContractAddress),
					zap.Error(res.Err),
				)
				continue
			}
			inserted, err := store.SaveContractEvents(ctx, res.ContractAddress, res.Events, cfg.LedgerConfig.FromBlock, cfg.LedgerConfig.ToBlock)
			if err != nil {
				failed++
				l.Sugar().Errorw("Failed to save contract events",
					zap.String("contract", res.ContractAddress),
					zap.Error(err),
				)
				continue
			}
			persisted += inserted
			_ = sink.Incr(metricsTypes.Metric_Incr_EventsPersisted, nil, float64(inserted))
		}

		l.Sugar().Infow("Sync complete",
			zap.Int("contracts", len(results)),
			zap.Int("failed", failed),
			zap.Int64("eventsPersisted", persisted),
		)
		if failed > 0 {
			l.Sugar().Fatalw("Sync finished with failed contracts", zap.Int("failed", failed))
		}
	},
}
