// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	otelresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.22.0"

	"github.com/netgrid-labs/stencil"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
	promcli "github.com/prometheus/client_golang/prometheus"
)

type OTel struct {
	otelConfig    *pkgmodel.OTelConfig
	meterProvider *metric.MeterProvider
}

func (s *Server) isOTelEnabled() bool {
	return s.otel != nil && s.otel.otelConfig != nil && s.otel.otelConfig.Enabled
}

// SetupGlobalTracerProvider initializes the global TracerProvider for OTLP export.
// This must be called BEFORE any db connections are created, as otelsql requires the
// TracerProvider at driver registration time.
//
// Returns a shutdown function that should be called on app exit.
func SetupGlobalTracerProvider(otelConfig *pkgmodel.OTelConfig) func() {
	if otelConfig == nil || !otelConfig.Enabled {
		return func() {}
	}

	otlpConfig := otelConfig.OTLP

	res, err := otelresource.New(context.Background(),
		otelresource.WithAttributes(
			semconv.ServiceNameKey.String(otelConfig.ServiceName),
			semconv.ServiceInstanceIDKey.String("stencil"),
			semconv.ServiceVersionKey.String(stencil.Version),
		),
	)
	if err != nil {
		slog.Error("failed to create resource for OTel tracing", "error", err)
		return func() {}
	}

	var exporter sdktrace.SpanExporter
	switch otlpConfig.Protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(otlpConfig.Endpoint),
		}
		if otlpConfig.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(context.Background(), opts...)
	case "http":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(otlpConfig.Endpoint),
		}
		if otlpConfig.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(context.Background(), opts...)
	default:
		slog.Error("unknown OTLP protocol for tracing", "protocol", otlpConfig.Protocol)
		return func() {}
	}

	if err != nil {
		slog.Error("failed to create OTLP trace exporter", "error", err)
		return func() {}
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	slog.Info("OTel tracing enabled", "endpoint", otlpConfig.Endpoint, "protocol", otlpConfig.Protocol)

	return func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down TracerProvider", "error", err)
		}
	}
}

func (s *Server) setupOTelMetrics() {
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("failed to create Prometheus exporter", "error", err)
		return
	}

	res, err := otelresource.New(context.Background(),
		otelresource.WithAttributes(
			semconv.ServiceNameKey.String(s.otel.otelConfig.ServiceName),
			semconv.ServiceInstanceIDKey.String("stencil"),
			semconv.ServiceVersionKey.String(stencil.Version),
		),
	)
	if err != nil {
		slog.Error("failed to create resource for OTel", "error", err)
		return
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	// Set as global meter provider so libraries like otelsql can use it
	otel.SetMeterProvider(meterProvider)

	promcli.MustRegister(promcli.CollectorFunc(s.collectMetrics))

	s.otel.meterProvider = meterProvider
	s.metricsHandler = promhttp.Handler()
}

// collectMetrics reads the datastore counts and the fetch totals at scrape
// time instead of keeping parallel gauges in sync.
func (s *Server) collectMetrics(ch chan<- promcli.Metric) {
	gauge := func(name, help string, value float64) {
		desc := promcli.NewDesc("stencil_"+name, help, nil, nil)
		metric, err := promcli.NewConstMetric(desc, promcli.GaugeValue, value)
		if err != nil {
			slog.Error("failed to create Prometheus metric", "name", name, "error", err)
			return
		}
		ch <- metric
	}

	counter := func(name, help string, value float64) {
		desc := promcli.NewDesc("stencil_"+name, help, nil, nil)
		metric, err := promcli.NewConstMetric(desc, promcli.CounterValue, value)
		if err != nil {
			slog.Error("failed to create Prometheus metric", "name", name, "error", err)
			return
		}
		ch <- metric
	}

	counts, err := s.store.Counts()
	if err != nil {
		slog.Error("failed to get counts from datastore", "error", err)
	} else {
		gauge("stacks", "Number of stacks", float64(counts.Stacks))
		gauge("targets", "Number of targets", float64(counts.Targets))
		gauge("templates", "Number of templates", float64(counts.Templates))
		gauge("fetch_specs", "Number of fetch specs", float64(counts.FetchSpecs))
	}

	counter("fetch_attempted_total", "Fetches attempted", float64(s.totals.attempted.Load()))
	counter("fetch_succeeded_total", "Fetches succeeded", float64(s.totals.succeeded.Load()))
	counter("fetch_failed_total", "Fetches failed", float64(s.totals.failed.Load()))
}

func (s *Server) shutdownOTel() {
	if s.isOTelEnabled() {
		// TracerProvider shutdown is handled by the cleanup function returned from SetupGlobalTracerProvider
		if s.otel.meterProvider != nil {
			if err := s.otel.meterProvider.Shutdown(context.Background()); err != nil {
				slog.Error("failed to shut down MeterProvider", "error", err)
			}
		}
	}
}
