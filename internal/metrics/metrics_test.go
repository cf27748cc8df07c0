package metrics

import (
	"testing"
	"time"

	"github.com/jobguard/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderWhenDisabled(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: false}, prometheus.NewRegistry())
	_, ok := m.(noopRecorder)
	assert.True(t, ok, "should return noop recorder when disabled")

	m.IncAdmission("admitted")
	m.IncRelease(true)
	m.IncClick(false)
	m.IncAttribution(false, true)
	m.IncQualification("qualified", false)
	m.ObserveRiskScore(40)
	m.IncStorageRetry("quota_admit")
	m.SetUnresolvedPayouts(3)
	m.IncRequestsTotal("/api/v1/affiliate/clicks", 200)
	m.ObserveRequestDuration("/api/v1/affiliate/clicks", time.Millisecond)
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(config.MetricsConfig{Enabled: true, Namespace: "test"}, reg)
	rec, ok := m.(*PrometheusRecorder)
	require.True(t, ok, "should return prometheus recorder when enabled")

	rec.IncAdmission("admitted")
	rec.IncAdmission("admitted")
	rec.IncAdmission("daily_cap_reached")
	rec.IncClick(true)
	rec.SetUnresolvedPayouts(4)
	rec.IncRequestsTotal("/health", 503)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.admissions.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.admissions.WithLabelValues("daily_cap_reached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.clicks.WithLabelValues("true")))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.unresolvedPayouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.requestsTotal.WithLabelValues("/health", "5xx")))
}

func TestHTTPStatusBucket(t *testing.T) {
	cases := map[int]string{101: "1xx", 204: "2xx", 302: "3xx", 429: "4xx", 500: "5xx"}
	for code, want := range cases {
		assert.Equal(t, want, httpStatusBucket(code), "code %d", code)
	}
}
