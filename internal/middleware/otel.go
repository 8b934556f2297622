package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// httpInstruments HTTP 层指标，InitMetrics 之前为空，中间件跳过记录
type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	reqSize  metric.Int64Histogram
	respSize metric.Int64Histogram
	active   metric.Int64UpDownCounter
}

var httpMetrics *httpInstruments

// toValidUTF8 用户可控字符串先清洗，非法 UTF-8 会让 trace 导出失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// InitMetrics 初始化 HTTP 指标
func InitMetrics(meter metric.Meter) error {
	var (
		m   httpInstruments
		err error
	)

	if m.requests, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	// 角色匹配和课程推荐是同步调用，桶上限放到 30s
	if m.duration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		return err
	}

	if m.reqSize, err = meter.Int64Histogram(
		"http.server.request.size",
		metric.WithDescription("HTTP request size"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}

	if m.respSize, err = meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("HTTP response size"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}

	if m.active, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	httpMetrics = &m
	return nil
}

// routeOf 优先使用路由模板，未匹配的请求统一归到 unmatched，避免指标基数爆炸
func routeOf(c *app.RequestContext) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// OpenTelemetryMiddleware 为每个请求创建 span 并记录 HTTP 指标
func OpenTelemetryMiddleware() app.HandlerFunc {
	tracer := otel.Tracer("fluentpro-http")

	return func(ctx context.Context, c *app.RequestContext) {
		startTime := time.Now()
		m := httpMetrics
		if m != nil {
			m.active.Add(ctx, 1)
			defer m.active.Add(ctx, -1)
		}

		method := toValidUTF8(string(c.Method()))
		route := toValidUTF8(routeOf(c))

		spanCtx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(method),
				semconv.HTTPRoute(route),
				semconv.HTTPURL(toValidUTF8(c.Request.URI().String())),
				semconv.HTTPScheme(toValidUTF8(string(c.Request.URI().Scheme()))),
				attribute.String("http.host", toValidUTF8(string(c.Host()))),
				attribute.String("http.user_agent", toValidUTF8(string(c.UserAgent()))),
			))
		defer span.End()

		if requestID := c.GetHeader("X-Request-Id"); len(requestID) > 0 {
			span.SetAttributes(attribute.String("http.request_id", toValidUTF8(string(requestID))))
		}

		c.Next(spanCtx)

		// 鉴权在本中间件之后执行，返回时才能拿到用户
		if userID, ok := GetUserID(ctx, c); ok {
			span.SetAttributes(attribute.String("enduser.id", userID))
		}

		duration := time.Since(startTime).Seconds()
		statusCode := c.Response.StatusCode()
		span.SetAttributes(semconv.HTTPStatusCode(statusCode))

		switch {
		case statusCode >= 500:
			span.SetStatus(codes.Error, "HTTP server error")
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(lastErr)
			}
		case statusCode >= 400:
			// 4xx 是业务拒绝（步骤不对、参数错误），不标记 span 失败
			span.SetStatus(codes.Unset, "")
		default:
			span.SetStatus(codes.Ok, "")
		}

		if m == nil {
			return
		}
		attrs := metric.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			semconv.HTTPStatusCode(statusCode),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, duration, attrs)
		if size := int64(c.Request.Header.ContentLength()); size > 0 {
			m.reqSize.Record(ctx, size, attrs)
		}
		if size := int64(len(c.Response.Body())); size > 0 {
			m.respSize.Record(ctx, size, attrs)
		}
	}
}

// NewServerTracerConfig hertz 自带的追踪，返回 server 选项和中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
