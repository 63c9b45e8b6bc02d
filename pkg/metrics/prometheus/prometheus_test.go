package prometheus

import (
	"testing"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/logger"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T) (*PrometheusMetricsClient, *prometheus.Registry) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	registry := prometheus.NewRegistry()
	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics:    metricsTypes.MetricTypes,
		Registerer: registry,
	}, l)
	assert.Nil(t, err)
	return pmc, registry
}

func Test_UnexpectedLabelsParsing(t *testing.T) {
	pmc, _ := setup(t)

	t.Run("Should return no error for all labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_LedgerBuildDuration, []metricsTypes.MetricsLabel{
			{Name: "source", Value: "etherscan"},
			{Name: "hasError", Value: "false"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return no error for a subset labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_LedgerBuildDuration, []metricsTypes.MetricsLabel{
			{Name: "source", Value: "etherscan"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return an error for unexpected labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_LedgerBuildDuration, []metricsTypes.MetricsLabel{
			{Name: "source", Value: "etherscan"},
			{Name: "hasError", Value: "false"},
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.NotNil(t, err)
	})
	t.Run("Should return an error for unexpected labels when expecting 0 labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Gauge, metricsTypes.Metric_Gauge_LedgerContracts, []metricsTypes.MetricsLabel{
			{Name: "source", Value: "etherscan"},
		})
		assert.NotNil(t, err)
	})
}

func Test_RecordMetrics(t *testing.T) {
	pmc, registry := setup(t)

	t.Run("Should register every metric under a valid prometheus name", func(t *testing.T) {
		assert.Nil(t, pmc.Gauge(metricsTypes.Metric_Gauge_LedgerContracts, 12, nil))

		families, err := registry.Gather()
		assert.Nil(t, err)

		names := make([]string, 0)
		for _, f := range families {
			names = append(names, f.GetName())
		}
		assert.Contains(t, names, "delegate_tracker_ledger_contracts")
	})
	t.Run("Should increment a counter with a subset of its labels", func(t *testing.T) {
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_ContractFetched, []metricsTypes.MetricsLabel{
			{Name: "status", Value: "success"},
		}, 2))
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_ContractFetched, []metricsTypes.MetricsLabel{
			{Name: "status", Value: "success"},
		}, 1))

		families, err := registry.Gather()
		assert.Nil(t, err)

		var value float64
		for _, f := range families {
			if f.GetName() != "delegate_tracker_ledger_contract_fetched" {
				continue
			}
			for _, m := range f.GetMetric() {
				value += m.GetCounter().GetValue()
			}
		}
		assert.Equal(t, float64(3), value)
	})
	t.Run("Should fill missing labels when observing a histogram", func(t *testing.T) {
		err := pmc.Timing(metricsTypes.Metric_Timing_QueryDuration, 25*time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: "range"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should ignore metrics that were never declared", func(t *testing.T) {
		assert.Nil(t, pmc.Incr("not.a.metric", nil, 1))
	})
}
