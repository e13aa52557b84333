package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/elevenfingers/internal/model"
)

const namespace = "elevenfingers"

// Frame type labels outside this set are reported as "unknown".
var knownFrameTypes = map[string]struct{}{
	"roomStatus":   {},
	"startGame":    {},
	"userProgress": {},
	"playerRank":   {},
	"endGame":      {},
	"join":         {},
}

// Collector holds all client metrics.
type Collector struct {
	status              *prometheus.GaugeVec
	connectAttempts     prometheus.Counter
	reconnectsScheduled prometheus.Counter
	frames              *prometheus.CounterVec
	decodeErrors        prometheus.Counter
	sendFailures        prometheus.Counter
}

// New creates a Collector and registers it with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_status",
				Help:      "1 for the current connection status, 0 otherwise",
			},
			[]string{"status"},
		),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of connection attempts",
		}),
		reconnectsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Total number of reconnection attempts scheduled after a close",
		}),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Total number of decoded inbound frames by message type",
			},
			[]string{"type"},
		),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of inbound frames that failed to decode",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Total number of sends dropped because the socket was not open",
		}),
	}

	for _, s := range model.AllStatuses {
		c.status.WithLabelValues(string(s)).Set(0)
	}
	c.status.WithLabelValues(string(model.StatusDisconnected)).Set(1)

	if reg != nil {
		reg.MustRegister(
			c.status,
			c.connectAttempts,
			c.reconnectsScheduled,
			c.frames,
			c.decodeErrors,
			c.sendFailures,
		)
	}

	return c
}

// SetStatus marks s as the current connection status.
func (c *Collector) SetStatus(s model.ConnectionStatus) {
	if c == nil {
		return
	}
	for _, other := range model.AllStatuses {
		v := 0.0
		if other == s {
			v = 1
		}
		c.status.WithLabelValues(string(other)).Set(v)
	}
}

// ConnectAttempt counts one connection attempt.
func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.connectAttempts.Inc()
}

// ReconnectScheduled counts one scheduled reconnection.
func (c *Collector) ReconnectScheduled() {
	if c == nil {
		return
	}
	c.reconnectsScheduled.Inc()
}

// Frame counts one decoded frame of the given message type.
func (c *Collector) Frame(msgType string) {
	if c == nil {
		return
	}
	if _, ok := knownFrameTypes[msgType]; !ok {
		msgType = "unknown"
	}
	c.frames.WithLabelValues(msgType).Inc()
}

// DecodeError counts one frame that could not be decoded.
func (c *Collector) DecodeError() {
	if c == nil {
		return
	}
	c.decodeErrors.Inc()
}

// SendFailure counts one send dropped locally.
func (c *Collector) SendFailure() {
	if c == nil {
		return
	}
	c.sendFailures.Inc()
}

// Handler serves metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
