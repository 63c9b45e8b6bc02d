package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_ContractFetched         = "ledger.contract.fetched"
	Metric_Incr_LogsDecoded             = "ledger.logs.decoded"
	Metric_Incr_LogsSkipped             = "ledger.logs.skipped"
	Metric_Incr_CollaboratorUnavailable = "collaborator.unavailable"
	Metric_Incr_EventsPersisted         = "store.events.persisted"
	Metric_Incr_DatesAggregated         = "query.dates.aggregated"
	Metric_Incr_QueryRejected           = "query.rejected"
	Metric_Incr_HttpRequest             = "rpc.http.request"

	Metric_Gauge_LedgerContracts = "ledger.contracts"
	Metric_Gauge_RosterRows      = "roster.rows"

	Metric_Timing_LedgerBuildDuration = "ledger.build.duration"
	Metric_Timing_ContractFetch       = "ledger.contract.fetch.duration"
	Metric_Timing_QueryDuration       = "query.duration"
	Metric_Timing_HttpDuration        = "rpc.http.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name: Metric_Incr_ContractFetched,
			Labels: []string{
				"status",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LogsDecoded,
			Labels: []string{
				"event_type",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LogsSkipped,
			Labels: []string{
				"field",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_CollaboratorUnavailable,
			Labels: []string{
				"collaborator",
			},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_EventsPersisted,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_DatesAggregated,
			Labels: []string{
				"source",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_QueryRejected,
			Labels: []string{
				"reason",
				"source",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_HttpRequest,
			Labels: []string{
				"method",
				"path",
				"status_code",
				"pattern",
				"client_ip",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_LedgerContracts,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_RosterRows,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_LedgerBuildDuration,
			Labels: []string{
				"source",
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_ContractFetch,
			Labels: []string{
				"event_type",
				"status",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_QueryDuration,
			Labels: []string{
				"kind",
				"clamped",
				"source",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_HttpDuration,
			Labels: []string{
				"method",
				"path",
				"status_code",
				"pattern",
				"client_ip",
			},
		},
	},
}
