// Package ledgerBuilder retrieves the Lock and Free logs of every roster
// contract, decodes them and folds them into a frozen ledger.
//
// Contracts are fetched by a bounded worker pool. Each worker folds its
// contract into a private segment; segments are merged into the ledger in
// contract order once the pool drains, so the result never depends on
// scheduling.
package ledgerBuilder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/clients/etherscan"
	"github.com/Layr-Labs/delegate-tracker/pkg/collaborators"
	"github.com/Layr-Labs/delegate-tracker/pkg/delegationLogParser"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledger"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/storage"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const (
	Source_Etherscan = "etherscan"
	Source_Database  = "database"
)

var fetchedEventTypes = []parser.EventType{
	parser.EventType_Lock,
	parser.EventType_Free,
}

// LogSource returns every raw log matching a request.
type LogSource interface {
	GetLogs(ctx context.Context, req *etherscan.GetLogsRequest) ([]*parser.RawLog, error)
}

type LedgerBuilderConfig struct {
	FromBlock    uint64
	ToBlock      string
	Workers      int
	ShowProgress bool
}

// ContractResult is the outcome of fetching a single contract. Segment and
// Events are nil when Err is set.
type ContractResult struct {
	ContractAddress string
	Events          []*parser.DelegationEvent
	DecodeErrors    []*delegationLogParser.DecodeError
	Segment         *ledger.Ledger
	Err             *collaborators.CollaboratorUnavailableError
}

// BuildReport describes what went into a ledger so that a zero amount can be
// told apart from missing data.
type BuildReport struct {
	Source          string
	Contracts       int
	EventsDecoded   int
	SkippedRecords  int
	DecodeErrors    []*delegationLogParser.DecodeError
	FailedContracts []*collaborators.CollaboratorUnavailableError
}

func (r *BuildReport) HasFailures() bool {
	return len(r.FailedContracts) > 0
}

// FailedContractAddresses returns the contracts that resolve to zero because
// their data could not be retrieved.
func (r *BuildReport) FailedContractAddresses() []string {
	return utils.Map(r.FailedContracts, func(e *collaborators.CollaboratorUnavailableError, i uint64) string {
		return e.Resource
	})
}

type LedgerBuilder struct {
	source      LogSource
	logParser   *delegationLogParser.DelegationLogParser
	config      *LedgerBuilderConfig
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewLedgerBuilder(
	source LogSource,
	cfg *LedgerBuilderConfig,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *LedgerBuilder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ToBlock == "" {
		cfg.ToBlock = "latest"
	}
	return &LedgerBuilder{
		source:      source,
		logParser:   delegationLogParser.NewDelegationLogParser(l),
		config:      cfg,
		metricsSink: ms,
		logger:      l,
	}
}

func (b *LedgerBuilder) newProgressBar(total int) *progressbar.ProgressBar {
	if !b.config.ShowProgress {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("fetching delegate contracts"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// FetchContracts retrieves and decodes the events of every contract. Results
// are returned in the order of contracts, one per unique address.
func (b *LedgerBuilder) FetchContracts(ctx context.Context, contracts []string) []*ContractResult {
	contracts = uniqueAddresses(contracts)
	results := xsync.NewMap[string, *ContractResult]()
	bar := b.newProgressBar(len(contracts))

	pool := pond.NewPool(b.config.Workers, pond.WithQueueSize(len(contracts)+1))
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, contract := range contracts {
		c := contract
		group.Submit(func() {
			res := b.fetchContract(groupCtx, c)
			results.Store(c, res)
			if bar != nil {
				_ = bar.Add(1)
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		b.logger.Sugar().Warnw("Contract fetch group encountered error", zap.Error(err))
	}
	if bar != nil {
		_ = bar.Finish()
	}

	ordered := make([]*ContractResult, 0, len(contracts))
	for _, c := range contracts {
		res, ok := results.Load(c)
		if !ok {
			res = &ContractResult{
				ContractAddress: c,
				Err:             collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Etherscan, c, fmt.Errorf("fetch did not complete: %v", ctx.Err())),
			}
		}
		ordered = append(ordered, res)
	}
	return ordered
}

func (b *LedgerBuilder) fetchContract(ctx context.Context, contract string) *ContractResult {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "ledgerBuilder.FetchContract")
	span.SetTag("contract_address", contract)
	defer span.Finish()

	res := &ContractResult{ContractAddress: contract}

	events := make([]*parser.DelegationEvent, 0)
	for _, eventType := range fetchedEventTypes {
		topic, err := delegationLogParser.EventTopic(eventType)
		if err != nil {
			res.Err = collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Etherscan, contract, err)
			break
		}

		start := time.Now()
		logs, err := b.source.GetLogs(ctx, &etherscan.GetLogsRequest{
			Address:   contract,
			Topic0:    topic.Hex(),
			FromBlock: b.config.FromBlock,
			ToBlock:   b.config.ToBlock,
		})
		status := "success"
		if err != nil {
			status = "error"
		}
		_ = b.metricsSink.Timing(metricsTypes.Metric_Timing_ContractFetch, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "event_type", Value: eventType.String()},
			{Name: "status", Value: status},
		})

		if err != nil {
			b.logger.Sugar().Errorw("Failed to fetch contract logs",
				zap.String("contractAddress", contract),
				zap.String("eventType", eventType.String()),
				zap.Error(err),
			)
			res.Err = collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Etherscan, contract, err)
			break
		}

		decoded, decodeErrors := b.logParser.DecodeLogs(contract, logs)
		events = append(events, decoded...)
		res.DecodeErrors = append(res.DecodeErrors, decodeErrors...)

		_ = b.metricsSink.Incr(metricsTypes.Metric_Incr_LogsDecoded, []metricsTypes.MetricsLabel{
			{Name: "event_type", Value: eventType.String()},
		}, float64(len(decoded)))
		for _, de := range decodeErrors {
			_ = b.metricsSink.Incr(metricsTypes.Metric_Incr_LogsSkipped, []metricsTypes.MetricsLabel{
				{Name: "field", Value: de.Field},
			}, 1)
		}
	}

	if res.Err != nil {
		span.SetTag("error", true)
		span.SetTag("error.message", res.Err.Error())
		_ = b.metricsSink.Incr(metricsTypes.Metric_Incr_ContractFetched, []metricsTypes.MetricsLabel{
			{Name: "status", Value: "error"},
		}, 1)
		_ = b.metricsSink.Incr(metricsTypes.Metric_Incr_CollaboratorUnavailable, []metricsTypes.MetricsLabel{
			{Name: "collaborator", Value: res.Err.Collaborator},
		}, 1)
		return res
	}

	segment, err := foldSegment(contract, events)
	if err != nil {
		res.Err = collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Etherscan, contract, err)
		return res
	}
	res.Events = events
	res.Segment = segment

	span.SetTag("events", len(events))
	_ = b.metricsSink.Incr(metricsTypes.Metric_Incr_ContractFetched, []metricsTypes.MetricsLabel{
		{Name: "status", Value: "success"},
	}, 1)
	return res
}

// Build fetches every contract and returns the frozen ledger. Contracts that
// could not be fetched are absent from the ledger and listed in the report.
func (b *LedgerBuilder) Build(ctx context.Context, contracts []string) (*ledger.Ledger, *BuildReport, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "ledgerBuilder.Build")
	defer span.Finish()

	start := time.Now()
	hasError := false
	defer func() {
		_ = b.metricsSink.Timing(metricsTypes.Metric_Timing_LedgerBuildDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "source", Value: Source_Etherscan},
			{Name: "hasError", Value: strconv.FormatBool(hasError)},
		})
	}()

	results := b.FetchContracts(ctx, contracts)

	l, report, err := MergeResults(results)
	if err != nil {
		hasError = true
		span.SetTag("error", true)
		span.SetTag("error.message", err.Error())
		return nil, nil, err
	}
	report.Source = Source_Etherscan
	hasError = report.HasFailures()

	_ = b.metricsSink.Gauge(metricsTypes.Metric_Gauge_LedgerContracts, float64(len(l.Contracts())), nil)
	logReport(b.logger, report)
	return l, report, nil
}

// MergeResults folds the segments of successful results into a new ledger in
// result order and freezes it.
func MergeResults(results []*ContractResult) (*ledger.Ledger, *BuildReport, error) {
	l := ledger.NewLedger()
	report := &BuildReport{
		Contracts:       len(results),
		DecodeErrors:    make([]*delegationLogParser.DecodeError, 0),
		FailedContracts: make([]*collaborators.CollaboratorUnavailableError, 0),
	}

	for _, res := range results {
		report.DecodeErrors = append(report.DecodeErrors, res.DecodeErrors...)
		report.SkippedRecords += len(res.DecodeErrors)

		if res.Err != nil {
			report.FailedContracts = append(report.FailedContracts, res.Err)
			continue
		}
		if err := l.Merge(res.Segment); err != nil {
			return nil, nil, fmt.Errorf("failed to merge segment for '%s': %w", res.ContractAddress, err)
		}
		report.EventsDecoded += len(res.Events)
	}
	l.Freeze()
	return l, report, nil
}

// BuildFromEvents builds a frozen ledger from events read back from the event
// store. Contracts without a sync record are treated as unavailable.
func BuildFromEvents(
	contracts []string,
	events []*parser.DelegationEvent,
	syncs []*storage.ContractSync,
	l *zap.Logger,
) (*ledger.Ledger, *BuildReport, error) {
	contracts = uniqueAddresses(contracts)

	synced := make(map[string]bool, len(syncs))
	for _, s := range syncs {
		synced[utils.NormalizeAddress(s.ContractAddress)] = true
	}

	byContract := make(map[string][]*parser.DelegationEvent)
	for _, e := range events {
		c := utils.NormalizeAddress(e.ContractAddress)
		byContract[c] = append(byContract[c], e)
	}

	results := make([]*ContractResult, 0, len(contracts))
	for _, c := range contracts {
		if !synced[c] {
			results = append(results, &ContractResult{
				ContractAddress: c,
				Err: collaborators.NewCollaboratorUnavailableError(
					collaborators.Collaborator_EventStore, c, fmt.Errorf("contract has not been synced"),
				),
			})
			continue
		}
		segment, err := foldSegment(c, byContract[c])
		if err != nil {
			return nil, nil, err
		}
		results = append(results, &ContractResult{
			ContractAddress: c,
			Events:          byContract[c],
			Segment:         segment,
		})
	}

	lgr, report, err := MergeResults(results)
	if err != nil {
		return nil, nil, err
	}
	report.Source = Source_Database
	logReport(l, report)
	return lgr, report, nil
}

// foldSegment builds the ledger of a single contract. The contract is
// registered even when it emitted no events.
func foldSegment(contract string, events []*parser.DelegationEvent) (*ledger.Ledger, error) {
	segment := ledger.NewLedger()
	if err := segment.EnsureContract(contract); err != nil {
		return nil, err
	}
	for _, e := range events {
		if err := segment.Apply(e); err != nil {
			return nil, err
		}
	}
	return segment, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]bool, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = utils.NormalizeAddress(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func logReport(l *zap.Logger, report *BuildReport) {
	l.Sugar().Infow("Built delegation ledger",
		zap.String("source", report.Source),
		zap.Int("contracts", report.Contracts),
		zap.Int("eventsDecoded", report.EventsDecoded),
		zap.Int("skippedRecords", report.SkippedRecords),
		zap.Int("failedContracts", len(report.FailedContracts)),
	)
	for _, f := range report.FailedContracts {
		l.Sugar().Warnw("Contract resolves to zero, its events could not be retrieved",
			zap.String("contractAddress", f.Resource),
			zap.String("collaborator", f.Collaborator),
			zap.Error(f.Err),
		)
	}
}
