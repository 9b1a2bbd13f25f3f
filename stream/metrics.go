package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts pipeline activity. One Metrics may be shared by several
// pipelines.
type Metrics struct {
	records      prometheus.Counter
	faults       prometheus.Counter
	pullDuration prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with registerer
// when it is not nil.
func NewMetrics(registerer prometheus.Registerer, namespace string) *Metrics {
	if registerer != nil {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"component": "natcodec"},
			registerer,
		)
	}

	m := Metrics{
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "records_total",
			Help:      "Number of records decoded successfully",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "faults_total",
			Help:      "Number of records tagged with a fault",
		}),
		pullDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "pull_duration_seconds",
			Help:      "Duration of a single record pull",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.records,
			m.faults,
			m.pullDuration,
		)
	}

	return &m
}

// Records returns the counter of successfully decoded records.
func (m *Metrics) Records() prometheus.Counter { return m.records }

// Faults returns the counter of records tagged with a fault.
func (m *Metrics) Faults() prometheus.Counter { return m.faults }

// PullDuration returns the pull latency histogram.
func (m *Metrics) PullDuration() prometheus.Histogram { return m.pullDuration }
