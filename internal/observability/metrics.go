package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and scheduler flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec
	notificationsCreatedTotal *prometheus.CounterVec
	channelSentTotal          *prometheus.CounterVec
	channelFailedTotal        *prometheus.CounterVec
	channelSendDuration       *prometheus.HistogramVec
	schedulerRunsTotal        *prometheus.CounterVec
	remindersSentTotal        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcraft_notifications",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventcraft_notifications",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		notificationsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcraft_notifications",
				Name:      "notifications_created_total",
				Help:      "Total number of notification records created, grouped by category.",
			},
			[]string{"category"},
		),
		channelSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcraft_notifications",
				Name:      "channel_sent_total",
				Help:      "Total number of successful channel deliveries.",
			},
			[]string{"channel"},
		),
		channelFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcraft_notifications",
				Name:      "channel_failed_total",
				Help:      "Total number of failed channel deliveries, grouped by failure kind.",
			},
			[]string{"channel", "reason"},
		),
		channelSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventcraft_notifications",
				Name:      "channel_send_duration_seconds",
				Help:      "Adapter send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		schedulerRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcraft_notifications",
				Name:      "scheduler_runs_total",
				Help:      "Total number of scheduler runs, grouped by trigger and outcome.",
			},
			[]string{"trigger", "outcome"},
		),
		remindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcraft_notifications",
				Name:      "reminders_sent_total",
				Help:      "Total number of event reminder notifications originated by the scheduler.",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.notificationsCreatedTotal,
		m.channelSentTotal,
		m.channelFailedTotal,
		m.channelSendDuration,
		m.schedulerRunsTotal,
		m.remindersSentTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncNotificationCreated(category string) {
	if m == nil {
		return
	}
	label := strings.TrimSpace(strings.ToLower(category))
	if label == "" {
		label = "unknown"
	}
	m.notificationsCreatedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncChannelSent(channel string) {
	if m == nil {
		return
	}
	m.channelSentTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncChannelFailed(channel string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.channelFailedTotal.WithLabelValues(normalizeChannel(channel), reasonLabel).Inc()
}

func (m *Metrics) ObserveChannelSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.channelSendDuration.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) IncSchedulerRun(trigger string, outcome string) {
	if m == nil {
		return
	}
	m.schedulerRunsTotal.WithLabelValues(
		strings.ToLower(strings.TrimSpace(trigger)),
		strings.ToLower(strings.TrimSpace(outcome)),
	).Inc()
}

func (m *Metrics) IncReminderSent(kind string) {
	if m == nil {
		return
	}
	m.remindersSentTotal.WithLabelValues(strings.ToLower(strings.TrimSpace(kind))).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
