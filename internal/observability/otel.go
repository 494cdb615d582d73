package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/finops-claw-gang/eventcheck-go/internal/config"
)

// ModeKey tags spans with the event source mode (stub or production).
const ModeKey = attribute.Key("eventcheck.mode")

// InitTracer installs a global tracer provider exporting over OTLP HTTP to
// cfg.OTelEndpoint, or to the OTEL_EXPORTER_OTLP_* target when that is empty.
// Root spans are sampled at cfg.OTelSampleRatio. The returned func flushes and
// stops the provider.
func InitTracer(ctx context.Context, service string, cfg config.Config) (func(context.Context) error, error) {
	var opts []otlptracehttp.Option
	if cfg.OTelEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTelEndpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: create exporter: %w", err)
	}

	res, err := newResource(service, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.OTelSampleRatio))),
	)
	otel.SetTracerProvider(tp)

	slog.Info("tracing enabled",
		"service", service,
		"endpoint", cfg.OTelEndpoint,
		"sample_ratio", cfg.OTelSampleRatio,
	)
	return tp.Shutdown, nil
}

// newResource describes the process. The attributes are schemaless so the
// merge never conflicts with the SDK's default schema URL.
func newResource(service string, cfg config.Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(service),
			semconv.ServiceVersion(cfg.ServiceVersion),
			ModeKey.String(string(cfg.Mode)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel: create resource: %w", err)
	}
	return res, nil
}
