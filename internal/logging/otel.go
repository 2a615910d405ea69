// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.22.0"

	"github.com/netgrid-labs/stencil"
)

// SetupOTelHandler builds an slog handler that ships records to an OTLP
// collector over gRPC. Returns nil when setup fails so callers can continue
// with the file and console sinks.
func SetupOTelHandler(serviceName string, otlpEndpoint string, insecure bool) slog.Handler {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceInstanceIDKey.String("stencil"),
			semconv.ServiceVersionKey.String(stencil.Version),
		),
	)
	if err != nil {
		slog.Error("could not set up OTel resource", "error", err)
		return nil
	}

	exporterOptions := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(otlpEndpoint),
	}
	if insecure {
		exporterOptions = append(exporterOptions, otlploggrpc.WithInsecure())
	}

	otlpExporter, err := otlploggrpc.New(context.Background(), exporterOptions...)
	if err != nil {
		slog.Error("could not set up OTLP gRPC exporter", "error", err)
		return nil
	}

	loggerProvider := otellog.NewLoggerProvider(
		otellog.WithResource(res),
		otellog.WithProcessor(
			otellog.NewBatchProcessor(otlpExporter),
		),
	)

	return otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(loggerProvider))
}
