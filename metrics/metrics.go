// Package metrics exposes Prometheus collectors for the deal desk.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the recorder interfaces used by auth, deal and the HTTP layer.
type Collector struct {
	logins       *prometheus.CounterVec
	denials      *prometheus.CounterVec
	dispatches   *prometheus.CounterVec
	uploadURLs   *prometheus.CounterVec
	submissions  prometheus.Counter
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_admin_logins_total",
			Help: "Admin login attempts by outcome.",
		}, []string{"outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_access_denied_total",
			Help: "Protected calls rejected by the access guard.",
		}, []string{"kind"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_dispatches_total",
			Help: "Outbound notification dispatches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		uploadURLs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_upload_urls_total",
			Help: "Presigned upload URL requests by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealdesk_submissions_total",
			Help: "Deals created through the public form.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.logins,
		c.denials,
		c.dispatches,
		c.uploadURLs,
		c.submissions,
		c.httpDuration,
	)
	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDenial(kind string) {
	c.denials.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordDispatch(kind string, ok bool) {
	c.dispatches.WithLabelValues(kind, outcome(ok)).Inc()
}

func (c *Collector) RecordUploadURL(ok bool) {
	c.uploadURLs.WithLabelValues(outcome(ok)).Inc()
}

func (c *Collector) RecordSubmission() {
	c.submissions.Inc()
}

// ObserveHTTP records one request's latency.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
