// Package delegationQuery runs date and date-range queries against a frozen
// delegation ledger. Every date is aggregated and ranked independently.
package delegationQuery

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/delegationAggregator"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// DateAggregator produces the ranked delegates of a single day.
type DateAggregator interface {
	AggregateAndRank(day time.Time) []*delegationAggregator.AggregatedDelegate
}

// QueryResultSet maps an ISO date to the ranked delegates of that date, in
// ascending date order.
type QueryResultSet = orderedmap.OrderedMap[string, []*delegationAggregator.AggregatedDelegate]

type QueryResult struct {
	RunId string
	Spec  *QuerySpec
	// Clamped is true when a future date was replaced by today
	Clamped   bool
	Dates     []time.Time
	ResultSet *QueryResultSet
}

// LastDate returns the ISO date of the last result set, or "" when empty.
func (r *QueryResult) LastDate() string {
	if len(r.Dates) == 0 {
		return ""
	}
	return utils.FormatDate(r.Dates[len(r.Dates)-1])
}

type QueryDriverConfig struct {
	Workers int
	// Source labels metrics with the surface that issued the query
	Source string
}

type QueryDriver struct {
	aggregator  DateAggregator
	config      *QueryDriverConfig
	clock       func() time.Time
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

type QueryDriverOption func(*QueryDriver)

// WithClock replaces the wall clock used to decide what "today" is.
func WithClock(clock func() time.Time) QueryDriverOption {
	return func(d *QueryDriver) {
		d.clock = clock
	}
}

func NewQueryDriver(
	aggregator DateAggregator,
	cfg *QueryDriverConfig,
	ms *metrics.MetricsSink,
	l *zap.Logger,
	opts ...QueryDriverOption,
) *QueryDriver {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	d := &QueryDriver{
		aggregator:  aggregator,
		config:      cfg,
		clock:       time.Now,
		metricsSink: ms,
		logger:      l,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Today is the current UTC calendar day.
func (d *QueryDriver) Today() time.Time {
	return utils.StartOfDay(d.clock())
}

// RunInput parses input and runs it.
func (d *QueryDriver) RunInput(ctx context.Context, input string, policy FutureDatePolicy) (*QueryResult, error) {
	spec, err := ParseQueryInput(input)
	if err != nil {
		d.reject("invalid_input")
		return nil, err
	}
	return d.Run(ctx, spec, policy)
}

func (d *QueryDriver) reject(reason string) {
	_ = d.metricsSink.Incr(metricsTypes.Metric_Incr_QueryRejected, []metricsTypes.MetricsLabel{
		{Name: "reason", Value: reason},
		{Name: "source", Value: d.config.Source},
	}, 1)
}

// Run resolves the days of spec and aggregates and ranks each of them. A
// FutureDateError is returned, before any aggregation, when spec reaches past
// today and policy is abort.
func (d *QueryDriver) Run(ctx context.Context, spec *QuerySpec, policy FutureDatePolicy) (*QueryResult, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "delegationQuery.Run")
	span.SetTag("query", spec.String())
	defer span.Finish()

	start := time.Now()

	dates, clamped, err := spec.ResolveDates(d.Today(), policy)
	if err != nil {
		var futureErr *FutureDateError
		if errors.As(err, &futureErr) {
			d.reject("future_date")
		}
		span.SetTag("error", true)
		span.SetTag("error.message", err.Error())
		return nil, err
	}

	result := &QueryResult{
		RunId:     uuid.NewString(),
		Spec:      spec,
		Clamped:   clamped,
		Dates:     dates,
		ResultSet: orderedmap.New[string, []*delegationAggregator.AggregatedDelegate](),
	}

	perDate := d.aggregateDates(dates)
	for i, day := range dates {
		result.ResultSet.Set(utils.FormatDate(day), perDate[i])
	}

	_ = d.metricsSink.Incr(metricsTypes.Metric_Incr_DatesAggregated, []metricsTypes.MetricsLabel{
		{Name: "source", Value: d.config.Source},
	}, float64(len(dates)))
	_ = d.metricsSink.Timing(metricsTypes.Metric_Timing_QueryDuration, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: "kind", Value: string(spec.Kind)},
		{Name: "clamped", Value: strconv.FormatBool(clamped)},
		{Name: "source", Value: d.config.Source},
	})
	span.SetTag("dates", len(dates))
	span.SetTag("clamped", clamped)

	d.logger.Sugar().Debugw("Ran delegation query",
		zap.String("runId", result.RunId),
		zap.String("query", spec.String()),
		zap.Int("dates", len(dates)),
		zap.Bool("clamped", clamped),
	)
	return result, nil
}

// aggregateDates returns the ranked delegates of each day, index aligned with
// dates. The aggregator only reads the frozen ledger, so days are independent.
func (d *QueryDriver) aggregateDates(dates []time.Time) [][]*delegationAggregator.AggregatedDelegate {
	out := make([][]*delegationAggregator.AggregatedDelegate, len(dates))

	if d.config.Workers == 1 || len(dates) <= 1 {
		for i, day := range dates {
			out[i] = d.aggregator.AggregateAndRank(day)
		}
		return out
	}

	pool := pond.NewPool(d.config.Workers, pond.WithQueueSize(len(dates)+1))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for i, day := range dates {
		idx, dt := i, day
		group.Submit(func() {
			out[idx] = d.aggregator.AggregateAndRank(dt)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) {
		d.logger.Sugar().Warnw("Date aggregation group encountered error", zap.Error(err))
	}
	return out
}
