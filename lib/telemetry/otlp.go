package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	exporterTimeout       = 3 * time.Second
	defaultMetricInterval = 5 * time.Second
)

// OtlpConnConfig is where one signal is exported to. The grpc endpoint wins
// when both are set, a signal with neither is not exported.
type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
	// Insecure disables tls, for a collector running next to the scraper.
	Insecure bool `json:"insecure"`
}

type transport string

const (
	transportNone transport = ""
	transportGrpc transport = "grpc"
	transportHttp transport = "http"
)

func (c OtlpConnConfig) transport() transport {
	switch {
	case c.GrpcEndpoint != "":
		return transportGrpc
	case c.HttpEndpoint != "":
		return transportHttp
	}
	return transportNone
}

func (c OtlpConnConfig) endpoint() string {
	if c.GrpcEndpoint != "" {
		return c.GrpcEndpoint
	}
	return c.HttpEndpoint
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

// Config is the content of telemetry.json5.
//
//	{
//	  otlp: {metrics: {grpc_endpoint: "http://localhost:4317", insecure: true}},
//	  metric_interval_seconds: 30,
//	  attributes: {"deployment.environment": "cron"},
//	}
type Config struct {
	Otlp                  OtlpConfig        `json:"otlp"`
	MetricIntervalSeconds int               `json:"metric_interval_seconds"`
	Attributes            map[string]string `json:"attributes"`
}

func (c Config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

// newTraceProvider returns nil when traces have no endpoint.
func newTraceProvider(ctx context.Context, r *resource.Resource, c OtlpConnConfig) (*trace.TracerProvider, error) {
	if c.transport() == transportNone {
		slog.Debug("no trace endpoint, traces will not be exported")
		return nil, nil
	}
	exporter, err := newSpanExporter(ctx, c)
	if err != nil {
		return nil, err
	}
	slog.Info(
		"trace exporter initialized",
		"type", c.transport(),
		"endpoint", c.endpoint(),
		"headers", len(c.Headers) > 0,
	)
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newSpanExporter(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	if c.transport() == transportGrpc {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		}
		if c.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(c.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Headers),
	}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// newMetricProvider returns nil when metrics have no endpoint.
func newMetricProvider(ctx context.Context, r *resource.Resource, c OtlpConnConfig, interval time.Duration) (*metric.MeterProvider, error) {
	if c.transport() == transportNone {
		slog.Debug("no metric endpoint, metrics will not be exported")
		return nil, nil
	}
	exporter, err := newMetricExporter(ctx, c)
	if err != nil {
		return nil, err
	}
	slog.Info(
		"metric exporter initialized",
		"type", c.transport(),
		"endpoint", c.endpoint(),
		"interval", interval,
	)
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		metric.WithResource(r),
	), nil
}

func newMetricExporter(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	if c.transport() == transportGrpc {
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		}
		if c.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	}
	if c.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}
