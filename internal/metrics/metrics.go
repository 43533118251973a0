// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordEventCreated()
	RecordAttendanceUpdate(status string)
	RecordCacheHit(namespace string)
	RecordCacheMiss(namespace string)
	RecordReminderRun(eventCount int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus        *prometheus.CounterVec
	eventsCreated     prometheus.Counter
	attendanceUpdates *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	reminderRuns      prometheus.Counter
	reminderEvents    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		eventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_events_created_total",
			Help: "作成されたイベントの合計数",
		}),
		attendanceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_attendance_updates_total",
			Help: "出欠回答の更新数（ステータス別）",
		}, []string{"status"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_cache_hits_total",
			Help: "キャッシュヒットの合計数（名前空間別）",
		}, []string{"namespace"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_cache_misses_total",
			Help: "キャッシュミスの合計数（名前空間別）",
		}, []string{"namespace"}),
		reminderRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_reminder_runs_total",
			Help: "リマインダーワーカーの実行回数",
		}),
		reminderEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_reminder_events_total",
			Help: "リマインダー対象として検出されたイベントの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.eventsCreated,
		c.attendanceUpdates,
		c.cacheHits,
		c.cacheMisses,
		c.reminderRuns,
		c.reminderEvents,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordEventCreated はイベント作成を記録する。
func (c *Collector) RecordEventCreated() {
	c.eventsCreated.Inc()
}

// RecordAttendanceUpdate は出欠回答の更新をステータス別に記録する。
func (c *Collector) RecordAttendanceUpdate(status string) {
	c.attendanceUpdates.WithLabelValues(status).Inc()
}

// RecordCacheHit はキャッシュヒットを名前空間別に記録する。
func (c *Collector) RecordCacheHit(namespace string) {
	c.cacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss はキャッシュミスを名前空間別に記録する。
func (c *Collector) RecordCacheMiss(namespace string) {
	c.cacheMisses.WithLabelValues(namespace).Inc()
}

// RecordReminderRun はリマインダーワーカーの実行と検出イベント数を記録する。
func (c *Collector) RecordReminderRun(eventCount int) {
	c.reminderRuns.Inc()
	c.reminderEvents.Add(float64(eventCount))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
