// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the ingestion pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifier"

// Recorder owns every collector. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	ingestions    *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	published     *prometheus.CounterVec
}

func New(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "code"},
		),
		ingestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingestions_total",
				Help:      "Inbound webhook calls by outcome.",
			},
			[]string{"outcome"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Inbound webhook calls denied, by tier.",
			},
			[]string{"tier"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Log entries written, by delivery status.",
			},
			[]string{"status"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mail_send_duration_seconds",
				Help:      "Time spent handing a notification to the SMTP server.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Log entries handed to downstream publishers, by publisher and result.",
			},
			[]string{"publisher", "result"},
		),
	}

	reg.MustRegister(
		r.httpRequests,
		r.httpDuration,
		r.ingestions,
		r.rateLimited,
		r.notifications,
		r.sendDuration,
		r.published,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if r == nil {
		return
	}
	c := strconv.Itoa(code)
	r.httpRequests.WithLabelValues(method, route, c).Inc()
	r.httpDuration.WithLabelValues(method, route, c).Observe(d.Seconds())
}

// IncIngestion counts a webhook call; outcome is accepted, not_found,
// rate_limited or error.
func (r *Recorder) IncIngestion(outcome string) {
	if r == nil {
		return
	}
	r.ingestions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncRateLimited(tier string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(tier).Inc()
}

func (r *Recorder) IncNotification(status string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveSend(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.sendDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (r *Recorder) IncPublished(publisher string, ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.published.WithLabelValues(publisher, result).Inc()
}
