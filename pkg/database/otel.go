package database

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"

	maxStatementLength = 500
)

var secretPattern = regexp.MustCompile(`(?i)(password_hash|password|token|secret)\s*=\s*'[^']*'`)

// Plugin GORM OpenTelemetry 插件，为每条语句创建 span 并记录耗时
type Plugin struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewPlugin 创建插件，指标注册失败时只保留追踪
func NewPlugin(serviceName string) *Plugin {
	meter := otel.Meter(serviceName + ".gorm")
	total, _ := meter.Int64Counter("db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	duration, _ := meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)

	return &Plugin{
		tracer:   otel.Tracer(serviceName + ".gorm"),
		total:    total,
		duration: duration,
	}
}

// Name 实现 gorm.Plugin 接口
func (p *Plugin) Name() string {
	return "otel_plugin"
}

// Initialize 注册回调
func (p *Plugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	_ = cb.Query().Before("gorm:query").Register("otel:before_query", p.before)
	_ = cb.Query().After("gorm:query").Register("otel:after_query", p.after)

	_ = cb.Create().Before("gorm:create").Register("otel:before_create", p.before)
	_ = cb.Create().After("gorm:create").Register("otel:after_create", p.after)

	_ = cb.Update().Before("gorm:update").Register("otel:before_update", p.before)
	_ = cb.Update().After("gorm:update").Register("otel:after_update", p.after)

	_ = cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before)
	_ = cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after)

	_ = cb.Row().Before("gorm:row").Register("otel:before_row", p.before)
	_ = cb.Row().After("gorm:row").Register("otel:after_row", p.after)

	_ = cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before)
	_ = cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after)

	return nil
}

func (p *Plugin) before(db *gorm.DB) {
	attrs := []attribute.KeyValue{semconv.DBSystemPostgreSQL}
	if table := db.Statement.Table; table != "" {
		attrs = append(attrs, semconv.DBSQLTable(table))
	}

	ctx, span := p.tracer.Start(db.Statement.Context, "db."+tableOrUnknown(db),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	db.InstanceSet(startKey, time.Now())
	db.InstanceSet(spanKey, span)
	db.Statement.Context = ctx
}

func (p *Plugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	operation := operationName(db.Statement.SQL.String())
	span.SetName(operation)
	span.SetAttributes(
		semconv.DBStatement(Sanitize(db.Statement.SQL.String())),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case db.Error == nil:
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		status = "not_found"
	default:
		status = "error"
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	ctx := db.Statement.Context
	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.status", status),
	)
	if p.total != nil {
		p.total.Add(ctx, 1, attrs)
	}
	if start, ok := db.InstanceGet(startKey); ok && p.duration != nil {
		if t, ok := start.(time.Time); ok {
			p.duration.Record(ctx, time.Since(t).Seconds(), attrs)
		}
	}
}

func tableOrUnknown(db *gorm.DB) string {
	if db.Statement.Table == "" {
		return "unknown"
	}
	return db.Statement.Table
}

func operationName(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return "db." + strings.ToLower(op)
		}
	}
	if sql == "" {
		return "db.unknown"
	}
	return "db.query"
}

// Sanitize 截断过长的语句并遮蔽密码、token 等字面量
func Sanitize(sql string) string {
	if len(sql) > maxStatementLength {
		sql = sql[:maxStatementLength] + "..."
	}
	return secretPattern.ReplaceAllString(sql, "$1='***'")
}
