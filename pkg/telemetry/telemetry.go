// Package telemetry provides OpenTelemetry tracer and meter providers. When
// disabled, no-op providers are returned and nothing is exported.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/horarium/pkg/lifecycle"
)

const shutdownTimeout = 5 * time.Second

// System exposes tracers and meters.
type System interface {
	Tracer(name string) trace.Tracer
	Meter(name string) metric.Meter
	// Start registers the provider shutdown hook with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type telemetry struct {
	tracers  trace.TracerProvider
	meters   metric.MeterProvider
	shutdown []func(context.Context) error
	logger   *slog.Logger
}

// New builds the providers. Exporters connect lazily, so New does not fail
// when the collector is down.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (System, error) {
	t := &telemetry{logger: logger.With("system", "telemetry")}

	if !cfg.Enabled {
		t.tracers = tracenoop.NewTracerProvider()
		t.meters = metricnoop.NewMeterProvider()
		return t, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExp,
			sdkmetric.WithInterval(cfg.MetricIntervalDuration()),
		)),
		sdkmetric.WithResource(res),
	)

	t.tracers = tp
	t.meters = mp
	t.shutdown = []func(context.Context) error{tp.Shutdown, mp.Shutdown}
	return t, nil
}

func (t *telemetry) Tracer(name string) trace.Tracer {
	return t.tracers.Tracer(name)
}

func (t *telemetry) Meter(name string) metric.Meter {
	return t.meters.Meter(name)
}

func (t *telemetry) Start(lc *lifecycle.Coordinator) error {
	if len(t.shutdown) == 0 {
		return nil
	}

	t.logger.Info("telemetry export enabled")

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, fn := range t.shutdown {
			errs = append(errs, fn(ctx))
		}
		if err := errors.Join(errs...); err != nil {
			t.logger.Error("telemetry shutdown failed", "error", err)
			return
		}
		t.logger.Info("telemetry flushed")
	})

	return nil
}
