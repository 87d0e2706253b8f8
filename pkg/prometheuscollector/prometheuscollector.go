// Package prometheuscollector allows to expose metrics for Prometheus.
//
// Using the provided collector, you can easily expose metrics for the
// handler in the Prometheus exposition format:
//
//	handler, err := handler.NewHandler(…)
//	collector := prometheuscollector.New(handler.Metrics)
//	prometheus.MustRegister(collector)
package prometheuscollector

import (
	"strconv"
	"sync/atomic"

	"github.com/rangd/rangd/pkg/handler"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotalDesc = prometheus.NewDesc(
		"rangd_requests_total",
		"Total number of incoming requests per method.",
		[]string{"method"}, nil)

	errorsTotalDesc = prometheus.NewDesc(
		"rangd_errors_total",
		"Total number of errors per status and code.",
		[]string{"status", "code"}, nil)

	bytesSentDesc = prometheus.NewDesc(
		"rangd_bytes_sent_total",
		"Total number of resource bytes written to clients.",
		nil, nil)

	transfersStartedDesc = prometheus.NewDesc(
		"rangd_transfers_started_total",
		"Total number of admitted transfers that began streaming.",
		nil, nil)

	transfersCompletedDesc = prometheus.NewDesc(
		"rangd_transfers_completed_total",
		"Total number of transfers that delivered their full interval.",
		nil, nil)

	transfersAbortedDesc = prometheus.NewDesc(
		"rangd_transfers_aborted_total",
		"Total number of transfers ended early by disconnect or failure.",
		nil, nil)

	transfersRejectedDesc = prometheus.NewDesc(
		"rangd_transfers_rejected_total",
		"Total number of requests refused by admission control.",
		nil, nil)
)

type Collector struct {
	metrics handler.Metrics
}

// New creates a new collector which read the given metrics.
func New(metrics handler.Metrics) Collector {
	return Collector{
		metrics: metrics,
	}
}

func (Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- requestsTotalDesc
	descs <- errorsTotalDesc
	descs <- bytesSentDesc
	descs <- transfersStartedDesc
	descs <- transfersCompletedDesc
	descs <- transfersAbortedDesc
	descs <- transfersRejectedDesc
}

func (c Collector) Collect(metrics chan<- prometheus.Metric) {
	for method, valuePtr := range c.metrics.RequestsTotal {
		metrics <- prometheus.MustNewConstMetric(
			requestsTotalDesc,
			prometheus.CounterValue,
			float64(atomic.LoadUint64(valuePtr)),
			method,
		)
	}

	for dims, valuePtr := range c.metrics.ErrorsTotal.Load() {
		metrics <- prometheus.MustNewConstMetric(
			errorsTotalDesc,
			prometheus.CounterValue,
			float64(atomic.LoadUint64(valuePtr)),
			strconv.Itoa(dims.Status),
			dims.Code,
		)
	}

	metrics <- prometheus.MustNewConstMetric(
		bytesSentDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(c.metrics.BytesSent)),
	)

	metrics <- prometheus.MustNewConstMetric(
		transfersStartedDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(c.metrics.TransfersStarted)),
	)

	metrics <- prometheus.MustNewConstMetric(
		transfersCompletedDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(c.metrics.TransfersCompleted)),
	)

	metrics <- prometheus.MustNewConstMetric(
		transfersAbortedDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(c.metrics.TransfersAborted)),
	)

	metrics <- prometheus.MustNewConstMetric(
		transfersRejectedDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(c.metrics.TransfersRejected)),
	)
}
