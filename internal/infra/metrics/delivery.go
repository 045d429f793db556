package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookDeliveriesTotal,
		webhookDuration,
		invoiceEmailsTotal,
		backgroundTasksTotal,
	)
}

var (
	// result: delivered|rejected|error
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Merchant webhook deliveries by event and result.",
		},
		[]string{"event", "result"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_seconds",
			Help:    "Round trip of a webhook POST in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"success"},
	)

	// result: sent|simulated|error
	invoiceEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_emails_total",
			Help: "Invoice emails by delivery result.",
		},
		[]string{"result"},
	)

	// result: ok|error|dropped
	backgroundTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_tasks_total",
			Help: "Tasks handled by the worker pool.",
		},
		[]string{"result"},
	)
)

func ObserveWebhook(event, result string, seconds float64) {
	webhookDeliveriesTotal.WithLabelValues(norm(event), norm(result)).Inc()
	webhookDuration.WithLabelValues(strconv.FormatBool(result == "delivered")).Observe(seconds)
}

func IncInvoiceEmail(result string) {
	invoiceEmailsTotal.WithLabelValues(norm(result)).Inc()
}

func IncTask(result string) {
	backgroundTasksTotal.WithLabelValues(norm(result)).Inc()
}
