package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	}, []string{"payment_method"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order placements",
	}, []string{"reason"})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total number of payments confirmed",
	})

	PaymentsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_duplicate_total",
		Help: "Total number of duplicate payment confirmations ignored",
	})

	PaymentLinkLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_link_latency_seconds",
		Help:    "Latency of payment-link creation calls to the provider",
		Buckets: prometheus.DefBuckets,
	})

	PaymentLinkFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_link_failed_total",
		Help: "Total number of failed payment-link creations",
	}, []string{"reason"})

	StockDecrementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_decrements_total",
		Help: "Total number of stock decrement statements applied",
	}, []string{"entity"})

	OrderLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_lookups_total",
		Help: "Total number of order tracking lookups",
	}, []string{"result"})

	CatalogIndexEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_index_events_total",
		Help: "Total number of change events applied to the catalog index",
	}, []string{"op"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
