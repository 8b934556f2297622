package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 引导流程指标
	OnboardingOperationsTotal   metric.Int64Counter
	OnboardingOperationDuration metric.Float64Histogram
	OnboardingTransitionsTotal  metric.Int64Counter
	OnboardingCompletedTotal    metric.Int64Counter

	// 课程分配指标（worker）
	RecommendationsTotal     metric.Int64Counter
	RecommendationPollsTotal metric.Int64Counter
}

var (
	// 全局指标实例，未初始化时所有 Record 函数都是 no-op
	metrics *OTelMetrics
	meter   = otel.Meter("fluentpro")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	m := &OTelMetrics{}

	m.OnboardingOperationsTotal, err = meter.Int64Counter(
		"onboarding_operations_total",
		metric.WithDescription("Total number of onboarding operations by result"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return err
	}

	m.OnboardingOperationDuration, err = meter.Float64Histogram(
		"onboarding_operation_duration_seconds",
		metric.WithDescription("Time spent in onboarding operations, collaborator calls included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30),
	)
	if err != nil {
		return err
	}

	m.OnboardingTransitionsTotal, err = meter.Int64Counter(
		"onboarding_phase_transitions_total",
		metric.WithDescription("Total number of onboarding phase transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	m.OnboardingCompletedTotal, err = meter.Int64Counter(
		"onboarding_completed_total",
		metric.WithDescription("Total number of completed onboarding sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	m.RecommendationsTotal, err = meter.Int64Counter(
		"course_recommendations_total",
		metric.WithDescription("Total number of course assignments by outcome"),
		metric.WithUnit("{recommendation}"),
	)
	if err != nil {
		return err
	}

	m.RecommendationPollsTotal, err = meter.Int64Counter(
		"course_recommendation_polls_total",
		metric.WithDescription("Total number of polls for custom courses being generated"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordOnboardingOperation 记录一次引导操作，result 为 ok 或错误类别
func RecordOnboardingOperation(ctx context.Context, op, result string, elapsed time.Duration) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.OnboardingOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", result),
	))
	m.OnboardingOperationDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", op),
	))
}

// RecordPhaseTransition 记录阶段变化
func RecordPhaseTransition(ctx context.Context, from, to string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.OnboardingTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
	if to == "onboarding_complete" {
		m.OnboardingCompletedTotal.Add(ctx, 1)
	}
}

// RecordRecommendation 记录 worker 分配课程的结果：ready, generating, none, failed
func RecordRecommendation(ctx context.Context, outcome string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.RecommendationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordRecommendationPoll 记录一次定制课程轮询
func RecordRecommendationPoll(ctx context.Context, outcome string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.RecommendationPollsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
