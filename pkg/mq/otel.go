package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer 为 RabbitMQ 的发布和消费创建 span，并通过消息头传播追踪上下文
type Tracer struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTracer 创建追踪器，指标注册失败时只保留追踪
func NewTracer(serviceName string) *Tracer {
	meter := otel.Meter(serviceName + ".rabbitmq")
	total, _ := meter.Int64Counter("mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages"),
		metric.WithUnit("{message}"),
	)
	duration, _ := meter.Float64Histogram("mq.message.duration",
		metric.WithDescription("RabbitMQ message processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)

	return &Tracer{
		tracer:   otel.Tracer(serviceName + ".rabbitmq"),
		total:    total,
		duration: duration,
	}
}

// Publish 包装一次发布：创建 span、注入追踪头、记录指标
func (t *Tracer) Publish(ctx context.Context, exchange, routingKey string, msg *amqp.Publishing, publish func(context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "rabbitmq.publish "+routingKey,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
			semconv.MessagingMessageID(msg.MessageId),
		),
	)
	defer span.End()

	if msg.Headers == nil {
		msg.Headers = amqp.Table{}
	}
	Inject(ctx, msg.Headers)

	start := time.Now()
	err := publish(ctx)
	t.record(ctx, span, "publish", routingKey, time.Since(start), err)
	return err
}

// Consume 包装一次消费：从消息头恢复上游追踪上下文后执行 handle
func (t *Tracer) Consume(ctx context.Context, queue string, d amqp.Delivery, handle func(context.Context) error) error {
	ctx = Extract(ctx, d.Headers)
	ctx, span := t.tracer.Start(ctx, "rabbitmq.process "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			attribute.String("messaging.rabbitmq.queue", queue),
			semconv.MessagingRabbitmqDestinationRoutingKey(d.RoutingKey),
			semconv.MessagingMessageID(d.MessageId),
		),
	)
	defer span.End()

	start := time.Now()
	err := handle(ctx)
	t.record(ctx, span, "process", d.RoutingKey, time.Since(start), err)
	return err
}

func (t *Tracer) record(ctx context.Context, span trace.Span, operation, routingKey string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}

	attrs := metric.WithAttributes(
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.String("messaging.status", status),
	)
	if t.total != nil {
		t.total.Add(ctx, 1, attrs)
	}
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// Inject 将追踪上下文写入消息头
func Inject(ctx context.Context, headers amqp.Table) {
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier(headers))
}

// Extract 从消息头读取追踪上下文
func Extract(ctx context.Context, headers amqp.Table) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(headers))
}

// HeaderCarrier 实现 propagation.TextMapCarrier 接口
type HeaderCarrier amqp.Table

func (c HeaderCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	c[key] = value
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
