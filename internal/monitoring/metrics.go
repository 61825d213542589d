package monitoring

import "github.com/prometheus/client_golang/prometheus"

// Animation lifecycle events.
const (
	EventStarted   = "started"
	EventResumed   = "resumed"
	EventSnapped   = "snapped"
	EventCompleted = "completed"
	EventCorrupt   = "corrupt_discarded"
)

// Metrics groups the engine's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	ReelsComposed   *prometheus.CounterVec
	AnimationEvents *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReelsComposed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_composed_total",
				Help: "Total reels composed",
			},
			[]string{"mode", "pinned"},
		),
		AnimationEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_animation_events_total",
				Help: "Animation lifecycle events",
			},
			[]string{"event"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(m.ReelsComposed, m.AnimationEvents, m.HTTPRequests)
	return m
}

// ReelComposed counts a reel by mode and the pinned symbol kind.
func (m *Metrics) ReelComposed(bigSpin bool, pinnedKind string) {
	if m == nil {
		return
	}
	mode := "normal"
	if bigSpin {
		mode = "big_spin"
	}
	m.ReelsComposed.WithLabelValues(mode, pinnedKind).Inc()
}

// AnimationEvent counts one lifecycle event.
func (m *Metrics) AnimationEvent(event string) {
	if m == nil {
		return
	}
	m.AnimationEvents.WithLabelValues(event).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
