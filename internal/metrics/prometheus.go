package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the TicketGPT server
type Metrics struct {
	registry *prometheus.Registry

	// Transcription metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// Agent metrics
	AgentRequests prometheus.Counter
	AgentFailures prometheus.Counter
	AgentDuration prometheus.Histogram

	ClipsSaved       prometheus.Counter
	WebSocketClients prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg creates a private registry that also carries the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketgpt_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketgpt_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticketgpt_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		}),

		AgentRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketgpt_agent_requests_total",
			Help: "Total number of questions sent to the agent",
		}),
		AgentFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketgpt_agent_failures_total",
			Help: "Total number of failed agent requests",
		}),
		AgentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticketgpt_agent_duration_seconds",
			Help:    "Duration of agent requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		ClipsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketgpt_audio_clips_saved_total",
			Help: "Total number of audio clips written to disk",
		}),
		WebSocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ticketgpt_websocket_clients",
			Help: "Current number of connected WebSocket clients",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketgpt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketgpt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveTranscription records one transcription request
func (m *Metrics) ObserveTranscription(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Inc()
	if err != nil {
		m.TranscriptionFailures.Inc()
	}
	m.TranscriptionDuration.Observe(elapsed.Seconds())
}

// ObserveAgent records one agent request
func (m *Metrics) ObserveAgent(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.AgentRequests.Inc()
	if err != nil {
		m.AgentFailures.Inc()
	}
	m.AgentDuration.Observe(elapsed.Seconds())
}

// ClipSaved increments the saved clips counter
func (m *Metrics) ClipSaved() {
	if m == nil {
		return
	}
	m.ClipsSaved.Inc()
}

// SetWebSocketClients sets the current number of WebSocket clients
func (m *Metrics) SetWebSocketClients(count int) {
	if m == nil {
		return
	}
	m.WebSocketClients.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Middleware records every request under its registered route pattern
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			m.RecordHTTPRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
