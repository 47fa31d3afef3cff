package server

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Observability struct {
	Tracer oteltrace.Tracer
	Meter  metric.Meter

	traceProvider *sdktrace.TracerProvider
	ScanCounter   metric.Int64Counter
	ScanDuration  metric.Int64Histogram
	FindingCount  metric.Int64Counter
	RateLimited   metric.Int64Counter
}

func SetupObservability(ctx context.Context, cfg ObservabilityConfig) (*Observability, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "gqlcheck-api"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}
	sampler := sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	if cfg.OTLPEndpoint != "" {
		exporter, exportErr := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if exportErr != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", exportErr)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler),
		)
	} else {
		slog.Info("otel trace exporter not configured; using local tracer provider")
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	meter := otel.Meter(serviceName)
	tracer := otel.Tracer(serviceName)
	scanCounter, _ := meter.Int64Counter("gqlcheck_scan_total")
	scanDuration, _ := meter.Int64Histogram("gqlcheck_scan_duration_ms")
	findingCount, _ := meter.Int64Counter("gqlcheck_findings_total")
	rateLimited, _ := meter.Int64Counter("gqlcheck_rate_limited_total")
	return &Observability{
		Tracer:        tracer,
		Meter:         meter,
		traceProvider: tp,
		ScanCounter:   scanCounter,
		ScanDuration:  scanDuration,
		FindingCount:  findingCount,
		RateLimited:   rateLimited,
	}, nil
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.traceProvider == nil {
		return nil
	}
	return o.traceProvider.Shutdown(ctx)
}

func (o *Observability) MarkScan(ctx context.Context, status string, durationMS int64) {
	if o == nil {
		return
	}
	o.ScanCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
	o.ScanDuration.Record(ctx, durationMS)
}

func (o *Observability) MarkFinding(ctx context.Context, kind string) {
	if o == nil {
		return
	}
	o.FindingCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

func (o *Observability) MarkRateLimited(ctx context.Context, reason string) {
	if o == nil {
		return
	}
	o.RateLimited.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
