package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 每个策略发出的提醒数
	ReminderEmittedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_emitted_total",
			Help: "Total number of reminders emitted by the scanner",
		},
		[]string{"policy"}, // before30min / due / overdue
	)

	// 跳过的提醒（已加锁、达到上限、间隔不足）
	ReminderSkippedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_skipped_total",
			Help: "Total number of reminder candidates skipped",
		},
		[]string{"policy", "reason"},
	)

	// 单个任务处理失败（已隔离，不中断扫描）
	ReminderTaskErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_task_errors_total",
			Help: "Per-task reminder processing errors that were isolated",
		},
		[]string{"policy"},
	)

	// 扫描耗时（秒）
	ReminderScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_scan_duration_seconds",
			Help:    "Reminder scan duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"trigger", "status"}, // trigger: tick / poll, status: ok / error / disabled
	)

	// reminder.fired 事件发布结果
	ReminderPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_publish_total",
			Help: "Total number of reminder.fired publish attempts",
		},
		[]string{"status"}, // ok / failed / circuit_open
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	DBSlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

func IncrementReminderEmitted(policy string) {
	ReminderEmittedCount.WithLabelValues(policy).Inc()
}

func IncrementReminderSkipped(policy, reason string) {
	ReminderSkippedCount.WithLabelValues(policy, reason).Inc()
}

func IncrementReminderTaskError(policy string) {
	ReminderTaskErrors.WithLabelValues(policy).Inc()
}

func RecordReminderScan(trigger, status string, duration time.Duration) {
	ReminderScanDuration.WithLabelValues(trigger, status).Observe(duration.Seconds())
}

func IncrementReminderPublish(status string) {
	ReminderPublishCount.WithLabelValues(status).Inc()
}

func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func IncrementSlowQuery() {
	DBSlowQueryCount.Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
