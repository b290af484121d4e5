// Package telemetry builds the OpenTelemetry tracer provider the API exports
// its spans through.
package telemetry

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"PartTimeJob-backend/internal/config"
)

// ScopeName is the instrumentation scope of spans started outside the
// workflow services
const ScopeName = "PartTimeJob-backend/internal/server"

// NewTracerProvider returns a provider tagged with the configured service
// name. With the stdout exporter finished spans are batched to w as JSON.
// With "none" spans are still sampled and recorded but never exported.
// Callers own the provider and must Shutdown it to flush pending spans.
func NewTracerProvider(cfg *config.Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName))
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	switch cfg.TraceExporter {
	case "", "none":
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.TraceExporter)
	}

	return sdktrace.NewTracerProvider(opts...), nil
}
