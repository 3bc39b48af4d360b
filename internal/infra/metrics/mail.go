package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(mailDeliveriesTotal) }

var mailDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mail_deliveries_total",
		Help: "Outbound e-mail attempts by outcome.",
	},
	[]string{"result"}, // 'sent', 'failed', 'skipped'
)

func IncMailDelivery(result string) {
	mailDeliveriesTotal.WithLabelValues(norm(result)).Inc()
}
