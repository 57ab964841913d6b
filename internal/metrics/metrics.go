// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordAction(action, outcome string)
	RecordPageCache(hit bool)
	RecordCleanup(kind string, deleted int64)
}

// アクションの結果ラベル
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	actions      *prometheus.CounterVec
	pageCache    *prometheus.CounterVec
	cleanup      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "successledger_http_requests_total",
			Help: "ルート・メソッド・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "successledger_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "successledger_actions_total",
			Help: "ドメイン操作（実績作成、いいね、コメント等）の実行数",
		}, []string{"action", "outcome"}),
		pageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "successledger_page_cache_total",
			Help: "ページキャッシュのヒット・ミス数",
		}, []string{"result"}),
		cleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "successledger_cleanup_deleted_total",
			Help: "クリーンアップジョブで削除した行数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.actions,
		c.pageCache,
		c.cleanup,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルの種類数を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAction はドメイン操作の結果を記録する。
func (c *Collector) RecordAction(action, outcome string) {
	c.actions.WithLabelValues(action, outcome).Inc()
}

// RecordPageCache はページキャッシュの参照結果を記録する。
func (c *Collector) RecordPageCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.pageCache.WithLabelValues(result).Inc()
}

// RecordCleanup はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordCleanup(kind string, deleted int64) {
	c.cleanup.WithLabelValues(kind).Add(float64(deleted))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクス不要なコマンドやテストで使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordAction(string, string)                          {}
func (Nop) RecordPageCache(bool)                                 {}
func (Nop) RecordCleanup(string, int64)                          {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
