package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xtree/lib/infra"
)

type MetricsExporterType string

const (
	NoopMetricsExporter       MetricsExporterType = "none"
	ConsoleMetricsExporter    MetricsExporterType = "console"
	PrometheusMetricsExporter MetricsExporterType = "prometheus"
)

func ParseMetricsExporterType(typ string) (MetricsExporterType, error) {
	switch t := MetricsExporterType(strings.ToLower(strings.TrimSpace(typ))); t {
	case "":
		return NoopMetricsExporter, nil
	case NoopMetricsExporter, ConsoleMetricsExporter, PrometheusMetricsExporter:
		return t, nil
	default:
	}
	return NoopMetricsExporter, infra.NewErrorStack("[observability] unknown metrics exporter " + typ)
}

type metricsExporterCfg struct {
	interval time.Duration
	timeout  time.Duration
	writer   io.Writer
}

type MetricsExporterOption func(*metricsExporterCfg)

func WithMetricsExportInterval(interval time.Duration) MetricsExporterOption {
	return func(cfg *metricsExporterCfg) {
		if interval > 0 {
			cfg.interval = interval
		}
	}
}

func WithMetricsExportTimeout(timeout time.Duration) MetricsExporterOption {
	return func(cfg *metricsExporterCfg) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

func WithMetricsConsoleWriter(w io.Writer) MetricsExporterOption {
	return func(cfg *metricsExporterCfg) {
		if w != nil {
			cfg.writer = w
		}
	}
}

// NewMetricsExporter sets the global meter provider. The returned
// callback flushes and shuts down the provider.
func NewMetricsExporter(typ MetricsExporterType, opts ...MetricsExporterOption) (func(ctx context.Context) error, error) {
	cfg := &metricsExporterCfg{
		interval: 10 * time.Second,
		timeout:  5 * time.Second,
		writer:   os.Stdout,
	}
	for _, o := range opts {
		o(cfg)
	}

	switch typ {
	case ConsoleMetricsExporter:
		return newConsoleMetricsExporter(cfg.interval, cfg.timeout,
			stdoutmetric.WithWriter(cfg.writer),
			stdoutmetric.WithPrettyPrint(),
		)
	case PrometheusMetricsExporter:
		return newPrometheusMetricsExporter()
	case NoopMetricsExporter:
		return func(context.Context) error { return nil }, nil
	default:
	}
	return nil, infra.NewErrorStack("[observability] unknown metrics exporter " + string(typ))
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (func(ctx context.Context) error, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
func newPrometheusMetricsExporter() (func(ctx context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, nil
}
