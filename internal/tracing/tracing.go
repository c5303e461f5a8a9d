// tracing настраивает OpenTelemetry для conference-service.
// При exporter=none возвращается noop-трейсер без накладных расходов.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName — service.name в ресурсах спанов.
const DefaultServiceName = "conference-service"

// Config — параметры экспорта.
type Config struct {
	// none | stdout | otlp
	Exporter    string
	Endpoint    string
	SampleRatio float64
	ServiceName string
}

// Provider владеет TracerProvider и отдаёт трейсер сервиса.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider создаёт провайдер по конфигу и регистрирует его глобально.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch cfg.Exporter {
	case "none", "":
		return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}, nil
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
	case "otlp":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	p := newProvider(exporter, cfg.ServiceName, cfg.SampleRatio)
	otel.SetTracerProvider(p.provider)

	return p, nil
}

func newProvider(exporter sdktrace.SpanExporter, serviceName string, ratio float64) *Provider {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	if ratio <= 0 {
		ratio = 1
	}

	// NewSchemaless: без конфликта schema URL с resource.Default().
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exporter),
	)

	return &Provider{provider: tp, tracer: tp.Tracer(serviceName)}
}

// Tracer возвращает трейсер; безопасен и при выключенной трассировке.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled сообщает, экспортируются ли спаны.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Shutdown сбрасывает буфер спанов и останавливает провайдер.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// End завершает спан, помечая его ошибкой, если err != nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
