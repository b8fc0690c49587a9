package tracing

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/tracing/exporters"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string
	Insecure    bool
}

// Setup installs the global tracer provider. With tracing disabled spans are
// written to the debug log instead of a collector. The returned func flushes
// and stops the provider.
func Setup(ctx context.Context, cfg Config, logger ectologger.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.Enabled {
		otlpCfg := exporters.DefaultOTLPConfig()
		otlpCfg.Endpoint = cfg.Endpoint
		otlpCfg.Protocol = cfg.Protocol
		otlpCfg.Insecure = cfg.Insecure
		otlp, err := exporters.NewOTLPExporter(ctx, otlpCfg)
		if err != nil {
			return nil, err
		}
		exporter = otlp
	} else {
		exporter = exporters.NewLogExporter(logger)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	SetTracer(provider.Tracer(cfg.ServiceName))

	return provider.Shutdown, nil
}
