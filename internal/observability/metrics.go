package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments exposed by the satellite.
type Metrics struct {
	ConnectionsActive   prometheus.Gauge
	ConnectionEvents    *prometheus.CounterVec
	FramesDecoded       *prometheus.CounterVec
	FramesEncoded       *prometheus.CounterVec
	FramingErrors       *prometheus.CounterVec
	WakeEvents          *prometheus.CounterVec
	RunsActive          prometheus.Gauge
	RunStageLatency     *prometheus.HistogramVec
	PlayerStateChanges  *prometheus.CounterVec
	PreferencesIOEvents *prometheus.CounterVec
	MDNSEvents          *prometheus.CounterVec

	runStageWindow *runStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently connected controllers.",
		}),
		ConnectionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_events_total",
			Help:      "Connection lifecycle events by type.",
		}, []string{"event"}),
		FramesDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Inbound frames decoded, by message type tag.",
		}, []string{"type"}),
		FramesEncoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_encoded_total",
			Help:      "Outbound frames encoded, by message type tag.",
		}, []string{"type"}),
		FramingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "framing_errors_total",
			Help:      "Fatal framing violations by reason.",
		}, []string{"reason"}),
		WakeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wake_events_total",
			Help:      "Wake-word trigger events by wake word id.",
		}, []string{"wake_word"}),
		RunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_runs_active",
			Help:      "Number of in-progress voice assistant runs.",
		}),
		RunStageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_stage_latency_ms",
			Help:      "Voice assistant run stage latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 900, 1500, 2500, 4000, 7000, 12000},
		}, []string{"stage"}),
		PlayerStateChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "player_state_changes_total",
			Help:      "Audio player state transitions by player and transition.",
		}, []string{"player", "transition"}),
		PreferencesIOEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preferences_io_events_total",
			Help:      "Preferences store I/O events by operation and result.",
		}, []string{"operation", "result"}),
		MDNSEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mdns_events_total",
			Help:      "mDNS advertiser events by operation and result.",
		}, []string{"operation", "result"}),
		runStageWindow: newRunStageWindow(256),
	}
}

func (m *Metrics) ObserveRunStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.RunStageLatency.WithLabelValues(stage).Observe(ms)
	m.runStageWindow.Observe(stage, ms)
}

func (m *Metrics) ObserveConnectionEvent(event string) {
	if m == nil || m.ConnectionEvents == nil {
		return
	}
	m.ConnectionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveFrameDecoded(msgType string) {
	if m == nil || m.FramesDecoded == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(msgType).Inc()
}

func (m *Metrics) ObserveFrameEncoded(msgType string) {
	if m == nil || m.FramesEncoded == nil {
		return
	}
	m.FramesEncoded.WithLabelValues(msgType).Inc()
}

func (m *Metrics) ObserveFramingError(reason string) {
	if m == nil || m.FramingErrors == nil {
		return
	}
	m.FramingErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveWakeEvent(wakeWord string) {
	if m == nil || m.WakeEvents == nil {
		return
	}
	m.WakeEvents.WithLabelValues(wakeWord).Inc()
}

func (m *Metrics) ObservePlayerStateChange(player, transition string) {
	if m == nil || m.PlayerStateChanges == nil {
		return
	}
	m.PlayerStateChanges.WithLabelValues(player, transition).Inc()
}

func (m *Metrics) ObservePreferencesIO(operation, result string) {
	if m == nil || m.PreferencesIOEvents == nil {
		return
	}
	m.PreferencesIOEvents.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveMDNSEvent(operation, result string) {
	if m == nil || m.MDNSEvents == nil {
		return
	}
	m.MDNSEvents.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) SnapshotRunStages() RunStageSnapshot {
	if m.runStageWindow == nil {
		return RunStageSnapshot{}
	}
	return m.runStageWindow.Snapshot()
}

func (m *Metrics) ResetRunStages() {
	if m == nil || m.runStageWindow == nil {
		return
	}
	m.runStageWindow.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
