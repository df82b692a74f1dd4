package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cvbuilder/internal/resume"
)

var (
	resumeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvbuilder",
			Subsystem: "resume",
			Name:      "writes_applied_total",
			Help:      "已应用的简历写入次数。",
		},
		[]string{"kind"},
	)

	resumeConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cvbuilder",
			Subsystem: "resume",
			Name:      "version_conflicts_total",
			Help:      "因版本过期被拒绝的写入次数。",
		},
	)
)

// GuardObserver 统计版本守卫的写入与冲突。
type GuardObserver struct{}

func (GuardObserver) Applied(_ context.Context, _ *resume.Document, conditional bool) {
	kind := "unconditional"
	if conditional {
		kind = "conditional"
	}
	resumeWritesTotal.WithLabelValues(kind).Inc()
}

func (GuardObserver) Conflicted(context.Context, uint, string, int64, int64) {
	resumeConflictsTotal.Inc()
}
