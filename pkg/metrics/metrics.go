// Package metrics exposes a pushkit client's activity counters as
// Prometheus metrics.
//
// The collector scrapes the client's stats snapshot on demand, so it adds
// no overhead to the client's hot paths.
//
// Metrics collected:
//   - pushkit_connection_up: 1 while the connection is established
//   - pushkit_connects_total / pushkit_reconnects_total
//   - pushkit_frames_received_total / pushkit_frames_sent_total
//   - pushkit_bytes_received_total / pushkit_bytes_sent_total
//   - pushkit_malformed_frames_total
//   - pushkit_events_dispatched_total / pushkit_events_dropped_total
//   - pushkit_callback_panics_total
//   - pushkit_auth_requests_total / pushkit_auth_failures_total
//   - pushkit_pings_sent_total
//   - pushkit_write_errors_total
//   - pushkit_subscribes_total / pushkit_unsubscribes_total
//
// Example:
//
//	c, _ := client.New("app-key", nil)
//	prometheus.MustRegister(metrics.NewCollector(c))
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pushkit-dev/pushkit/pkg/client"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "pushkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "pushkit",
	}
}

// Source is the view of a client the collector scrapes. *client.Client
// implements it.
type Source interface {
	State() client.State
	Stats() client.Stats
}

// Collector implements prometheus.Collector over one client's counters.
type Collector struct {
	src Source

	up               *prometheus.Desc
	connects         *prometheus.Desc
	reconnects       *prometheus.Desc
	framesReceived   *prometheus.Desc
	framesSent       *prometheus.Desc
	bytesReceived    *prometheus.Desc
	bytesSent        *prometheus.Desc
	malformedFrames  *prometheus.Desc
	eventsDispatched *prometheus.Desc
	eventsDropped    *prometheus.Desc
	callbackPanics   *prometheus.Desc
	authRequests     *prometheus.Desc
	authFailures     *prometheus.Desc
	pingsSent        *prometheus.Desc
	writeErrors      *prometheus.Desc
	subscribes       *prometheus.Desc
	unsubscribes     *prometheus.Desc
}

// NewCollector creates a collector scraping src. Register it with a
// prometheus.Registerer to expose the metrics.
func NewCollector(src Source, opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(config.Namespace, config.Subsystem, name),
			help, nil, config.ConstLabels)
	}

	return &Collector{
		src:              src,
		up:               desc("connection_up", "1 while the connection is established, 0 otherwise"),
		connects:         desc("connects_total", "Total connections established, including reconnects"),
		reconnects:       desc("reconnects_total", "Total automatic reconnections"),
		framesReceived:   desc("frames_received_total", "Total frames read from the server"),
		framesSent:       desc("frames_sent_total", "Total frames written to the server"),
		bytesReceived:    desc("bytes_received_total", "Total payload bytes read from the server"),
		bytesSent:        desc("bytes_sent_total", "Total payload bytes written to the server"),
		malformedFrames:  desc("malformed_frames_total", "Total inbound frames dropped as malformed"),
		eventsDispatched: desc("events_dispatched_total", "Total events delivered to bound callbacks"),
		eventsDropped:    desc("events_dropped_total", "Total events dropped before dispatch"),
		callbackPanics:   desc("callback_panics_total", "Total panics recovered from event callbacks"),
		authRequests:     desc("auth_requests_total", "Total channel and user auth requests"),
		authFailures:     desc("auth_failures_total", "Total failed auth requests"),
		pingsSent:        desc("pings_sent_total", "Total heartbeat pings sent"),
		writeErrors:      desc("write_errors_total", "Total failed frame writes"),
		subscribes:       desc("subscribes_total", "Total channel subscriptions requested"),
		unsubscribes:     desc("unsubscribes_total", "Total channel unsubscriptions requested"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.connects
	ch <- c.reconnects
	ch <- c.framesReceived
	ch <- c.framesSent
	ch <- c.bytesReceived
	ch <- c.bytesSent
	ch <- c.malformedFrames
	ch <- c.eventsDispatched
	ch <- c.eventsDropped
	ch <- c.callbackPanics
	ch <- c.authRequests
	ch <- c.authFailures
	ch <- c.pingsSent
	ch <- c.writeErrors
	ch <- c.subscribes
	ch <- c.unsubscribes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	up := 0.0
	if c.src.State() == client.StateConnected {
		up = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)

	snap := c.src.Stats()
	counter := func(desc *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	counter(c.connects, snap.Connects)
	counter(c.reconnects, snap.Reconnects)
	counter(c.framesReceived, snap.FramesReceived)
	counter(c.framesSent, snap.FramesSent)
	counter(c.bytesReceived, snap.BytesReceived)
	counter(c.bytesSent, snap.BytesSent)
	counter(c.malformedFrames, snap.MalformedFrames)
	counter(c.eventsDispatched, snap.EventsDispatched)
	counter(c.eventsDropped, snap.EventsDropped)
	counter(c.callbackPanics, snap.CallbackPanics)
	counter(c.authRequests, snap.AuthRequests)
	counter(c.authFailures, snap.AuthFailures)
	counter(c.pingsSent, snap.PingsSent)
	counter(c.writeErrors, snap.WriteErrors)
	counter(c.subscribes, snap.Subscribes)
	counter(c.unsubscribes, snap.Unsubscribes)
}
