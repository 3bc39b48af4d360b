package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(gatewayErrorsTotal) }

var gatewayErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Payment provider call failures by operation and error kind.",
	},
	[]string{"op", "kind"}, // kind: 'auth', 'rate_limit', 'invalid_request', 'api', 'network'
)

func IncGatewayError(op, kind string) {
	gatewayErrorsTotal.WithLabelValues(norm(op), norm(kind)).Inc()
}
