package metrics

import (
	"strings"
	"time"

	"github.com/jobguard/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder 引擎业务指标
type Recorder interface {
	IncAdmission(outcome string)
	IncRelease(released bool)
	IncClick(duplicate bool)
	IncAttribution(existing, roleMismatch bool)
	IncQualification(outcome string, payoutUnresolved bool)
	ObserveRiskScore(score int)
	IncStorageRetry(operation string)
	SetUnresolvedPayouts(count int64)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
}

// PrometheusRecorder 基于 Prometheus 的指标实现
type PrometheusRecorder struct {
	admissions        *prometheus.CounterVec
	releases          *prometheus.CounterVec
	clicks            *prometheus.CounterVec
	attributions      *prometheus.CounterVec
	qualifications    *prometheus.CounterVec
	riskScores        prometheus.Histogram
	storageRetries    *prometheus.CounterVec
	unresolvedPayouts prometheus.Gauge
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New 按配置创建指标记录器，未启用时返回空实现
func New(cfg config.MetricsConfig, registerer prometheus.Registerer) Recorder {
	if !cfg.Enabled {
		return Noop()
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "jobguard"
	}
	factory := promauto.With(registerer)

	return &PrometheusRecorder{
		admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_admissions_total",
			Help:      "Application admission decisions by outcome",
		}, []string{"outcome"}),
		releases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_releases_total",
			Help:      "Compensating quota releases",
		}, []string{"released"}),
		clicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affiliate_clicks_total",
			Help:      "Affiliate clicks recorded, split by idempotent duplicates",
		}, []string{"duplicate"}),
		attributions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affiliate_attributions_total",
			Help:      "Affiliate registration attributions",
		}, []string{"existing", "role_mismatch"}),
		qualifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affiliate_qualifications_total",
			Help:      "Affiliate qualification outcomes",
		}, []string{"outcome", "payout_unresolved"}),
		riskScores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of computed user risk scores",
			Buckets:   []float64{0, 10, 25, 40, 55, 70, 85, 100},
		}),
		storageRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_contention_retries_total",
			Help:      "Retries caused by lock or serialization conflicts",
		}, []string{"operation"}),
		unresolvedPayouts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "affiliate_unresolved_payouts",
			Help:      "Qualified registrations waiting for manual payout resolution",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *PrometheusRecorder) IncAdmission(outcome string) {
	m.admissions.WithLabelValues(outcome).Inc()
}

func (m *PrometheusRecorder) IncRelease(released bool) {
	m.releases.WithLabelValues(boolLabel(released)).Inc()
}

func (m *PrometheusRecorder) IncClick(duplicate bool) {
	m.clicks.WithLabelValues(boolLabel(duplicate)).Inc()
}

func (m *PrometheusRecorder) IncAttribution(existing, roleMismatch bool) {
	m.attributions.WithLabelValues(boolLabel(existing), boolLabel(roleMismatch)).Inc()
}

func (m *PrometheusRecorder) IncQualification(outcome string, payoutUnresolved bool) {
	m.qualifications.WithLabelValues(outcome, boolLabel(payoutUnresolved)).Inc()
}

func (m *PrometheusRecorder) ObserveRiskScore(score int) {
	m.riskScores.Observe(float64(score))
}

func (m *PrometheusRecorder) IncStorageRetry(operation string) {
	m.storageRetries.WithLabelValues(operation).Inc()
}

func (m *PrometheusRecorder) SetUnresolvedPayouts(count int64) {
	m.unresolvedPayouts.Set(float64(count))
}

func (m *PrometheusRecorder) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *PrometheusRecorder) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop 返回空实现
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) IncAdmission(string)                          {}
func (noopRecorder) IncRelease(bool)                              {}
func (noopRecorder) IncClick(bool)                                {}
func (noopRecorder) IncAttribution(bool, bool)                    {}
func (noopRecorder) IncQualification(string, bool)                {}
func (noopRecorder) ObserveRiskScore(int)                         {}
func (noopRecorder) IncStorageRetry(string)                       {}
func (noopRecorder) SetUnresolvedPayouts(int64)                   {}
func (noopRecorder) IncRequestsTotal(string, int)                 {}
func (noopRecorder) ObserveRequestDuration(string, time.Duration) {}
