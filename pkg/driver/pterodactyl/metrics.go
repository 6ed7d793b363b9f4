package pterodactyl

import "github.com/prometheus/client_golang/prometheus"

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gantry_pterodactyl_requests_total",
		Help: "Requests sent to Pterodactyl panels by method, target and status code",
	},
	[]string{"method", "target", "code"},
)

// Collectors returns the metrics of this driver for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestsTotal}
}
