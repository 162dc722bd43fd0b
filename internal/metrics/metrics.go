package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the prometheus collectors used by the storefront core and the reference backend.
// Each Collector owns its registry so tests and multiple sessions never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	CartWrites        *prometheus.CounterVec
	CartWritesSkipped prometheus.Counter
	CartLoads         *prometheus.CounterVec
	CouponValidations *prometheus.CounterVec
	OrderSubmissions  *prometheus.CounterVec
	OrderPolls        *prometheus.CounterVec
	OrderCancels      *prometheus.CounterVec
	RemoteLatency     *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered on a fresh registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		CartWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_writes_total",
				Help: "Remote cart line writes by outcome",
			},
			[]string{"result"},
		),
		CartWritesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "storefront_cart_writes_superseded_total",
				Help: "Pending cart line writes replaced by a newer edit before being sent",
			},
		),
		CartLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_loads_total",
				Help: "Full cart reloads by outcome",
			},
			[]string{"result"},
		),
		CouponValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_coupon_validations_total",
				Help: "Coupon validations by outcome",
			},
			[]string{"result"},
		),
		OrderSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_order_submissions_total",
				Help: "Order submissions by outcome",
			},
			[]string{"result"},
		),
		OrderPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_order_polls_total",
				Help: "Order status polls by outcome",
			},
			[]string{"result"},
		),
		OrderCancels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_order_cancels_total",
				Help: "Order cancellation attempts by outcome",
			},
			[]string{"result"},
		),
		RemoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_remote_request_seconds",
				Help:    "Latency of calls to the remote storefront services",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Requests served by the reference backend",
			},
			[]string{"method", "route", "status"},
		),
	}

	c.registry.MustRegister(
		c.CartWrites,
		c.CartWritesSkipped,
		c.CartLoads,
		c.CouponValidations,
		c.OrderSubmissions,
		c.OrderPolls,
		c.OrderCancels,
		c.RemoteLatency,
		c.HTTPRequests,
	)

	return c
}

// Registry exposes the registry for promhttp
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Result maps an error to the result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
