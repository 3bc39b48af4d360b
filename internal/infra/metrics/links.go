package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		accessLinksIssuedTotal,
		accessLinkResolutionsTotal,
		accessLinksPurgedTotal,
	)
}

var (
	accessLinksIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_links_issued_total",
			Help: "Access links issued, by origin.",
		},
		[]string{"origin"}, // 'merchant', 'self_service'
	)

	accessLinkResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_link_resolutions_total",
			Help: "Access link lookups by outcome.",
		},
		[]string{"result"}, // 'valid', 'missing', 'expired', 'error'
	)

	accessLinksPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_links_purged_total",
			Help: "Expired access links removed by the purge worker.",
		},
	)
)

func IncLinkIssued(origin string) {
	accessLinksIssuedTotal.WithLabelValues(norm(origin)).Inc()
}

func IncLinkResolution(result string) {
	accessLinkResolutionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncLinksPurged(n int) {
	accessLinksPurgedTotal.Add(float64(n))
}
