// Package metrics fans metric writes out to every configured backend.
package metrics

import (
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/dogstatsd"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/prometheus"
	"go.uber.org/zap"
)

type MetricsSinkConfig struct {
	// DefaultLabels are appended to every metric written through the sink
	DefaultLabels []metricsTypes.MetricsLabel
}

type MetricsSink struct {
	config  *MetricsSinkConfig
	clients []metricsTypes.IMetricsClient
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	return &MetricsSink{
		config:  cfg,
		clients: clients,
	}, nil
}

// NewNoopMetricsSink returns a sink with no backends.
func NewNoopMetricsSink() *MetricsSink {
	return &MetricsSink{
		config:  &MetricsSinkConfig{},
		clients: []metricsTypes.IMetricsClient{},
	}
}

// InitMetricsSinksFromConfig creates a client for every enabled backend.
func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, error) {
	clients := make([]metricsTypes.IMetricsClient, 0)

	if cfg.DataDogConfig.StatsdConfig.Enabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(cfg.DataDogConfig.StatsdConfig.Url, l)
		if err != nil {
			return nil, err
		}
		clients = append(clients, dd)
		l.Sugar().Infow("DogStatsd metrics enabled", zap.String("url", cfg.DataDogConfig.StatsdConfig.Url))
	}

	if cfg.PrometheusConfig.Enabled {
		pc, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		if err != nil {
			return nil, err
		}
		clients = append(clients, pc)
		l.Sugar().Infow("Prometheus metrics enabled", zap.Int("port", cfg.PrometheusConfig.Port))
	}

	return clients, nil
}

func (ms *MetricsSink) withDefaultLabels(labels []metricsTypes.MetricsLabel) []metricsTypes.MetricsLabel {
	if len(ms.config.DefaultLabels) == 0 {
		return labels
	}
	out := make([]metricsTypes.MetricsLabel, 0, len(labels)+len(ms.config.DefaultLabels))
	out = append(out, labels...)
	return append(out, ms.config.DefaultLabels...)
}

// Incr returns the last error any backend reported; every backend is still written to.
func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	var lastErr error
	for _, client := range ms.clients {
		if err := client.Incr(name, ms.withDefaultLabels(labels), value); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	var lastErr error
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, ms.withDefaultLabels(labels)); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	var lastErr error
	for _, client := range ms.clients {
		if err := client.Timing(name, value, ms.withDefaultLabels(labels)); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}
