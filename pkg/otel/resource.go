package otel

// Resource 描述产生 telemetry 数据的实体（服务、主机），会附加到所有 span 和指标上
//
// Resource
//     ↓
// TracerProvider ── Sampler / BatchSpanProcessor / Exporter
// MeterProvider  ── PeriodicReader / Exporter
//     ↓
// OpenTelemetry Collector → Jaeger/Tempo/Grafana

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceNamespace = "fluentpro"

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			append(GetServiceAttributes(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment),
				semconv.TelemetrySDKLanguageGo)...,
		),
		resource.WithHost(),
		resource.WithOSType(),
		resource.WithOSDescription(),
	)
}

// GetServiceAttributes 获取服务属性
func GetServiceAttributes(serviceName, serviceVersion, environment string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
		semconv.DeploymentEnvironment(environment),
		semconv.ServiceNamespace(serviceNamespace),
	}
}

// grpcEndpoint OTLP gRPC exporter 只接受 host:port
func grpcEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimPrefix(endpoint, "https://")
}
