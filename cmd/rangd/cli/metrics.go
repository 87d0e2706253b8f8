package cli

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rangd/rangd/pkg/handler"
	"github.com/rangd/rangd/pkg/prometheuscollector"
)

var MetricsOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "rangd_connections_open",
	Help: "Current number of open connections.",
})

func SetupMetrics(router chi.Router, handler *handler.Handler) {
	prometheus.MustRegister(MetricsOpenConnections)
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rangd_transfers_active",
		Help: "Current number of admitted transfer sessions.",
	}, func() float64 {
		return float64(handler.ActiveTransfers())
	}))
	prometheus.MustRegister(prometheuscollector.New(handler.Metrics))

	stdout.Printf("Using %s as the metrics path.\n", Flags.MetricsPath)

	router.Method("GET", Flags.MetricsPath, promhttp.Handler())
}
