package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "upgrader_chain_"

type metrics struct {
	blocks     prometheus.Counter
	submitted  prometheus.Counter
	applied    prometheus.Counter
	failed     prometheus.Counter
	dropped    prometheus.Counter
	events     prometheus.Counter
	height     prometheus.Gauge
	poolLength prometheus.Gauge
}

// newMetrics builds the node metrics; with a nil registry they are left unregistered.
func newMetrics(registry prometheus.Registerer) *metrics {
	factory := promauto.With(registry)

	return &metrics{
		blocks: factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "blocks_sealed_total",
			Help: "Total number of sealed blocks",
		}),
		submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "extrinsics_submitted_total",
			Help: "Total number of extrinsics accepted into the pool",
		}),
		applied: factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "extrinsics_applied_total",
			Help: "Total number of extrinsics included in a block",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "extrinsics_failed_total",
			Help: "Total number of included extrinsics whose dispatch failed",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "extrinsics_dropped_total",
			Help: "Total number of pooled extrinsics that became invalid before inclusion",
		}),
		events: factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "events_total",
			Help: "Total number of runtime events emitted",
		}),
		height: factory.NewGauge(prometheus.GaugeOpts{
			Name: metricNamePrefix + "height",
			Help: "Number of the latest sealed block",
		}),
		poolLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: metricNamePrefix + "pool_length",
			Help: "Number of extrinsics waiting for inclusion",
		}),
	}
}
