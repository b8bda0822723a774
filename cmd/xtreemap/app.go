package main

import (
	"context"
	"io"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/observability"
	"github.com/benz9527/xtree/xlog"
)

type streams struct {
	out    io.Writer
	errOut io.Writer
}

func newLogger(cfg *Config, s streams) (xlog.XLogger, error) {
	enc, err := xlog.ParseEncoder(cfg.Log.Encoder)
	if err != nil {
		return nil, err
	}
	return xlog.NewXLogger(
		xlog.WithXLoggerWriter(s.errOut),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.Log.Level)),
		xlog.WithXLoggerContextFieldExtract(commandCtxKey{}, "cmd"),
	)
}

type metricsShutdown func(ctx context.Context) error

func newMetrics(lc fx.Lifecycle, cfg *Config, logger xlog.XLogger, s streams) (metricsShutdown, error) {
	typ, err := observability.ParseMetricsExporterType(cfg.Metrics.Exporter)
	if err != nil {
		return nil, err
	}
	shutdown, err := observability.NewMetricsExporter(typ,
		observability.WithMetricsExportInterval(cfg.Metrics.Interval),
		observability.WithMetricsConsoleWriter(s.errOut),
	)
	if err != nil {
		return nil, err
	}
	if typ != observability.NoopMetricsExporter {
		observability.InitAppStats(context.Background(), "xtreemap", nil)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debug("metrics exporter shutdown", zap.String("exporter", string(typ)))
			return shutdown(ctx)
		},
	})
	return shutdown, nil
}

// commandCtxKey carries the name of the running sub command.
type commandCtxKey struct{}

// runApp builds the dependency graph and starts the app once. The
// action registers its work as start hook, the fx lifecycle stops all
// the components after the work is done.
func runApp(ctx context.Context, cfg *Config, s streams, action any) (err error) {
	var logger xlog.XLogger
	app := fx.New(
		fx.Supply(cfg, s),
		fx.Provide(newLogger, newMetrics),
		fx.WithLogger(func(l xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(l)
		}),
		fx.Populate(&logger),
		fx.Invoke(func(metricsShutdown) {}),
		fx.Invoke(action),
	)
	if err = app.Err(); err != nil {
		return err
	}
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	if err = app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(context.Background())
}
