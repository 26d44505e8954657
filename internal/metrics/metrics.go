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
// サービス層から利用する。
type MetricsCollector interface {
	RecordClassification(label string)
	RecordClassificationFallback(reason string)
	RecordSummarySuccess(batchSize int)
	RecordSummaryFailure(reason string)
	RecordAILatency(operation string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	classifyTotal    *prometheus.CounterVec
	classifyFallback *prometheus.CounterVec
	summarySuccess   prometheus.Counter
	summaryFail      *prometheus.CounterVec
	summaryBatchSize prometheus.Histogram
	aiLatency        *prometheus.HistogramVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		classifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbinsight_classify_total",
			Help: "感情分類成功のラベル別合計数",
		}, []string{"sentiment"}),
		classifyFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbinsight_classify_fallback_total",
			Help: "感情分類フォールバックの理由別合計数",
		}, []string{"reason"}),
		summarySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fbinsight_summary_success_total",
			Help: "要約生成成功の合計数",
		}),
		summaryFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbinsight_summary_fail_total",
			Help: "要約生成失敗の理由別合計数",
		}, []string{"reason"}),
		summaryBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fbinsight_summary_batch_size",
			Help:    "要約バッチの件数分布",
			Buckets: []float64{1, 5, 10, 20, 30, 40, 50},
		}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fbinsight_ai_latency_seconds",
			Help:    "AIプロバイダ呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbinsight_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.classifyTotal,
		c.classifyFallback,
		c.summarySuccess,
		c.summaryFail,
		c.summaryBatchSize,
		c.aiLatency,
		c.httpStatus,
	)

	return c
}

// RecordClassification は感情分類成功をラベル別に記録する。
func (c *Collector) RecordClassification(label string) {
	c.classifyTotal.WithLabelValues(label).Inc()
}

// RecordClassificationFallback は分類フォールバックの発生を記録する。
func (c *Collector) RecordClassificationFallback(reason string) {
	c.classifyFallback.WithLabelValues(reason).Inc()
}

// RecordSummarySuccess は要約生成成功とバッチ件数を記録する。
func (c *Collector) RecordSummarySuccess(batchSize int) {
	c.summarySuccess.Inc()
	c.summaryBatchSize.Observe(float64(batchSize))
}

// RecordSummaryFailure は要約生成失敗を記録する。
func (c *Collector) RecordSummaryFailure(reason string) {
	c.summaryFail.WithLabelValues(reason).Inc()
}

// RecordAILatency はAIプロバイダ呼び出しのレイテンシを記録する。
func (c *Collector) RecordAILatency(operation string, duration time.Duration) {
	c.aiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
