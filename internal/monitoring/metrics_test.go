package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCount(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ReelComposed(true, "decoy")
	m.ReelComposed(true, "decoy")
	m.ReelComposed(false, "standard")
	m.AnimationEvent(EventResumed)
	m.HTTPRequest("POST", "/api/v1/mines/payout", 422)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReelsComposed.WithLabelValues("big_spin", "decoy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReelsComposed.WithLabelValues("normal", "standard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnimationEvents.WithLabelValues(EventResumed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/mines/payout", "4xx")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReelComposed(false, "standard")
		m.AnimationEvent(EventStarted)
		m.HTTPRequest("GET", "/health", 200)
	})
}
