package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "atropos"

type coordinatorMetrics struct {
	groupsReceived    *prometheus.CounterVec
	batchesServed     prometheus.Counter
	queueGroups       prometheus.Gauge
	queueSequences    prometheus.Gauge
	bufferedSequences prometheus.Gauge
	connectedEnvs     prometheus.Gauge
	currentStep       prometheus.Gauge
}

func newCoordinatorMetrics(reg prometheus.Registerer) *coordinatorMetrics {
	return &coordinatorMetrics{
		groupsReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_groups_received_total",
			Help:      "Scored groups ingested, labelled by ingestion outcome.",
		}, []string{"outcome"}),
		batchesServed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_batches_served_total",
			Help:      "Batches handed to trainers.",
		}),
		queueGroups: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_queue_groups",
			Help:      "Complete groups currently queued for batching.",
		}),
		queueSequences: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_queue_sequences",
			Help:      "Total sequences currently queued for batching.",
		}),
		bufferedSequences: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_regroup_buffered_sequences",
			Help:      "Sequences held in regroup buffers awaiting an exact fit.",
		}),
		connectedEnvs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_connected_environments",
			Help:      "Environments currently connected.",
		}),
		currentStep: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_current_step",
			Help:      "Training step counter, advanced as batches are assembled.",
		}),
	}
}
