// Package metrics collects and exposes Prometheus metrics for the cart backend
// and the device-side synchronizer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records cart sync, checkout and HTTP metrics.
type Collector struct {
	merges        *prometheus.CounterVec
	pushes        *prometheus.CounterVec
	checkouts     *prometheus.CounterVec
	recordWrites  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	storefrontLat prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "somnicart_sync_merges_total",
			Help: "Sign-in merges by result.",
		}, []string{"result"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "somnicart_sync_pushes_total",
			Help: "Remote cart saves by result.",
		}, []string{"result"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "somnicart_checkout_sessions_total",
			Help: "Checkout session requests by outcome code.",
		}, []string{"outcome"}),
		recordWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "somnicart_cart_record_writes_total",
			Help: "Remote cart record writes by operation.",
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "somnicart_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "somnicart_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		storefrontLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "somnicart_storefront_request_duration_seconds",
			Help:    "Storefront API call latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.merges,
		c.pushes,
		c.checkouts,
		c.recordWrites,
		c.httpRequests,
		c.httpLatency,
		c.storefrontLat,
	)
	return c
}

func (c *Collector) RecordMerge(result string) {
	c.merges.WithLabelValues(result).Inc()
}

func (c *Collector) RecordPush(result string) {
	c.pushes.WithLabelValues(result).Inc()
}

// RecordCheckout counts a checkout attempt by its outcome code ("ok" or an error code).
func (c *Collector) RecordCheckout(outcome string) {
	c.checkouts.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRecordWrite(op string) {
	c.recordWrites.WithLabelValues(op).Inc()
}

func (c *Collector) RecordHTTP(route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) RecordStorefrontLatency(d time.Duration) {
	c.storefrontLat.Observe(d.Seconds())
}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
