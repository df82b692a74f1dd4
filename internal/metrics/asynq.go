package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务结果标签取值。
const (
	outcomeSuccess = "success"
	outcomeRetry   = "retry"
	outcomeSkipped = "skipped"
)

var (
	taskProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvbuilder",
			Subsystem: "asynq",
			Name:      "tasks_processed_total",
			Help:      "按结果统计的任务处理次数。",
		},
		[]string{"task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvbuilder",
			Subsystem: "asynq",
			Name:      "task_duration_seconds",
			Help:      "任务处理耗时（秒），PDF 渲染通常在数秒量级。",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cvbuilder",
			Subsystem: "asynq",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"task_type"},
	)
)

// AsynqMetricsMiddleware 记录任务耗时与结果：成功、将被重试、或带 SkipRetry 直接放弃。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			taskInProgress.WithLabelValues(taskType).Inc()
			defer taskInProgress.WithLabelValues(taskType).Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			taskProcessedTotal.WithLabelValues(taskType, taskOutcome(err)).Inc()

			return err
		})
	}
}

func taskOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, asynq.SkipRetry):
		return outcomeSkipped
	default:
		return outcomeRetry
	}
}
