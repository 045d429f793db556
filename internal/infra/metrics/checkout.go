package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		checkoutTransitionsTotal,
		checkoutRevenueTotal,
		checkoutDeclinesTotal,
		checkoutSessionsSwept,
		payRateLimited,
	)
}

var (
	// event: created|paid|declined|cancelled
	checkoutTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout session lifecycle events.",
		},
		[]string{"event"},
	)

	checkoutRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_revenue_total",
			Help: "Monetary value of successful checkouts, labeled by currency.",
		},
		[]string{"currency"},
	)

	checkoutDeclinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_declines_total",
			Help: "Declined payment attempts by method and decline code.",
		},
		[]string{"method", "code"},
	)

	checkoutSessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_sessions_swept_total",
			Help: "Expired sessions removed by the cleanup worker.",
		},
	)

	payRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_pay_rate_limited_total",
			Help: "Payment attempts rejected by the per-session rate limiter.",
		},
	)
)

func IncCheckout(event string) {
	checkoutTransitionsTotal.WithLabelValues(norm(event)).Inc()
}

func AddRevenue(currency string, amount float64) {
	checkoutRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}

func IncDecline(method, code string) {
	checkoutDeclinesTotal.WithLabelValues(norm(method), norm(code)).Inc()
}

func AddSessionsSwept(n int) {
	checkoutSessionsSwept.Add(float64(n))
}

func IncPayRateLimited() {
	payRateLimited.Inc()
}
