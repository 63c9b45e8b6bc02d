package cmd

import (
	"context"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/internal/version"
	"github.com/Layr-Labs/delegate-tracker/pkg/clients/etherscan"
	"github.com/Layr-Labs/delegate-tracker/pkg/collaborators"
	"github.com/Layr-Labs/delegate-tracker/pkg/delegationAggregator"
	"github.com/Layr-Labs/delegate-tracker/pkg/delegationQuery"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledger"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledgerBuilder"
	"github.com/Layr-Labs/delegate-tracker/pkg/logger"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/delegate-tracker/pkg/postgres"
	"github.com/Layr-Labs/delegate-tracker/pkg/roster"
	pgStorage "github.com/Layr-Labs/delegate-tracker/pkg/storage/postgres"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// bootstrap reads the config and builds the logger and metrics sink every
// command starts from.
func bootstrap() (*config.Config, *zap.Logger, *metrics.MetricsSink) {
	cfg := config.NewConfig()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		panic(err)
	}
	l.Sugar().Infow("delegate-tracker", zap.String("version", version.GetVersion()), zap.String("commit", version.GetCommit()))

	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
	}

	sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
	if err != nil {
		l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
	}
	return cfg, l, sink
}

func loadRoster(cfg *config.Config, sink *metrics.MetricsSink, l *zap.Logger) (*roster.Roster, error) {
	r, err := roster.LoadRoster(cfg.RosterConfig.Path, l)
	if err != nil {
		_ = sink.Incr(metricsTypes.Metric_Incr_CollaboratorUnavailable, []metricsTypes.MetricsLabel{
			{Name: "collaborator", Value: collaborators.Collaborator_Roster},
		}, 1)
		return nil, collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Roster, cfg.RosterConfig.Path, err)
	}
	_ = sink.Gauge(metricsTypes.Metric_Gauge_RosterRows, float64(len(r.Records)), nil)
	return r, nil
}

func newEtherscanClient(cfg *config.Config, l *zap.Logger) *etherscan.Client {
	return etherscan.NewEtherscanClient(&etherscan.EtherscanClientConfig{
		ApiKey:   cfg.EtherscanConfig.ApiKey,
		BaseUrl:  cfg.EtherscanConfig.BaseUrl,
		PageSize: cfg.EtherscanConfig.PageSize,
	}, etherscan.DefaultHttpClient(time.Duration(cfg.EtherscanConfig.TimeoutSeconds)*time.Second), l)
}

func newLedgerBuilder(cfg *config.Config, sink *metrics.MetricsSink, l *zap.Logger) *ledgerBuilder.LedgerBuilder {
	return ledgerBuilder.NewLedgerBuilder(newEtherscanClient(cfg, l), &ledgerBuilder.LedgerBuilderConfig{
		FromBlock:    cfg.LedgerConfig.FromBlock,
		ToBlock:      cfg.LedgerConfig.ToBlock,
		Workers:      cfg.LedgerConfig.Workers,
		ShowProgress: cfg.LedgerConfig.ShowProgress,
	}, sink, l)
}

// buildLedger builds the frozen ledger of every roster contract from the
// configured source.
func buildLedger(
	ctx context.Context,
	cfg *config.Config,
	r *roster.Roster,
	sink *metrics.MetricsSink,
	l *zap.Logger,
) (*ledger.Ledger, *ledgerBuilder.BuildReport, error) {
	contracts := r.ContractAddresses()

	if cfg.LedgerConfig.Source != config.LedgerSource_Database {
		return newLedgerBuilder(cfg, sink, l).Build(ctx, contracts)
	}

	_, grm, err := postgres.ConnectAndMigrate(cfg, l)
	if err != nil {
		return nil, nil, collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_EventStore, cfg.DatabaseConfig.DbName, err)
	}
	store := pgStorage.NewPostgresEventStore(grm, l, cfg)

	syncs, err := store.ListContractSyncs(ctx, contracts)
	if err != nil {
		return nil, nil, collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_EventStore, "contract_syncs", err)
	}
	events, err := store.ListDelegationEvents(ctx, contracts)
	if err != nil {
		return nil, nil, collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_EventStore, "delegation_events", err)
	}

	lgr, report, err := ledgerBuilder.BuildFromEvents(contracts, events, syncs, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build ledger from stored events")
	}
	_ = sink.Gauge(metricsTypes.Metric_Gauge_LedgerContracts, float64(len(lgr.Contracts())), nil)
	return lgr, report, nil
}

// prepareQueryDriver loads the roster, builds the ledger and returns a driver
// querying it.
func prepareQueryDriver(
	ctx context.Context,
	cfg *config.Config,
	source string,
	sink *metrics.MetricsSink,
	l *zap.Logger,
) (*delegationQuery.QueryDriver, *ledgerBuilder.BuildReport, error) {
	r, err := loadRoster(cfg, sink, l)
	if err != nil {
		return nil, nil, err
	}

	lgr, report, err := buildLedger(ctx, cfg, r, sink, l)
	if err != nil {
		return nil, nil, err
	}

	agg := delegationAggregator.NewDelegationAggregator(r, lgr, cfg.RosterConfig.WindowPolicy, l)
	driver := delegationQuery.NewQueryDriver(agg, &delegationQuery.QueryDriverConfig{
		Workers: cfg.QueryConfig.Workers,
		Source:  source,
	}, sink, l)
	return driver, report, nil
}

func futureDatePolicy(clamp bool) delegationQuery.FutureDatePolicy {
	if clamp {
		return delegationQuery.FutureDatePolicy_Clamp
	}
	return delegationQuery.FutureDatePolicy_Abort
}
