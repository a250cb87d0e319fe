package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

// DefaultNamespace prefixes all metric names unless overridden.
const DefaultNamespace = "uasub"

// publishStates are the flags counted by RecordPublishState.
var publishStates = []subscription.PublishState{
	subscription.PublishStateStopped,
	subscription.PublishStateRecovered,
	subscription.PublishStateRepublish,
	subscription.PublishStateTransferred,
	subscription.PublishStateTimeout,
}

// PrometheusCollector implements subscription.Metrics backed by Prometheus.
// Metrics are registered on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	publishRequests *prometheus.CounterVec
	publishLatency  prometheus.Histogram
	workers         prometheus.Gauge
	maxWorkers      prometheus.Gauge
	acks            prometheus.Counter
	acksPerPublish  prometheus.Histogram
	republish       *prometheus.CounterVec
	lostMessages    prometheus.Counter
	droppedMessages prometheus.Counter
	publishState    *prometheus.CounterVec
}

var _ subscription.Metrics = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector registering on reg
// (prometheus.DefaultRegisterer if nil) under namespace (DefaultNamespace if
// empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.publishRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "requests_total",
			Help:      "Finished publish requests by status.",
		}, []string{"status"})
		p.publishLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "latency_seconds",
			Help:      "Publish request latency in seconds, including the server's wait for notifications.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10), // 5ms .. ~19s
		})
		p.workers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "workers",
			Help:      "Current number of publish workers.",
		})
		p.maxWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "workers_max",
			Help:      "Current publish worker ceiling.",
		})
		p.acks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "acknowledgements_total",
			Help:      "Acknowledgements sent with publish requests.",
		})
		p.acksPerPublish = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "acknowledgements_per_request",
			Help:      "Acknowledgements carried by one publish request.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		})
		p.republish = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "republish_total",
			Help:      "Republish calls by result (success|failure).",
		}, []string{"result"})
		p.lostMessages = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "lost_messages_total",
			Help:      "Sequence numbers that could not be recovered.",
		})
		p.droppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "dropped_messages_total",
			Help:      "Stale or duplicate messages dropped.",
		})
		p.publishState = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "publish_state_changes_total",
			Help:      "Publish state changes by state.",
		}, []string{"state"})

		p.reg.MustRegister(p.publishRequests)
		p.reg.MustRegister(p.publishLatency)
		p.reg.MustRegister(p.workers)
		p.reg.MustRegister(p.maxWorkers)
		p.reg.MustRegister(p.acks)
		p.reg.MustRegister(p.acksPerPublish)
		p.reg.MustRegister(p.republish)
		p.reg.MustRegister(p.lostMessages)
		p.reg.MustRegister(p.droppedMessages)
		p.reg.MustRegister(p.publishState)
	})
}

// RecordPublish counts a finished publish request and observes its latency.
func (p *PrometheusCollector) RecordPublish(status string, latency time.Duration) {
	p.ensureRegistered()
	p.publishRequests.WithLabelValues(status).Inc()
	p.publishLatency.Observe(latency.Seconds())
}

// SetPublishWorkers sets the worker gauge.
func (p *PrometheusCollector) SetPublishWorkers(n int) {
	p.ensureRegistered()
	p.workers.Set(float64(n))
}

// SetMaxPublishWorkers sets the worker ceiling gauge.
func (p *PrometheusCollector) SetMaxPublishWorkers(n int) {
	p.ensureRegistered()
	p.maxWorkers.Set(float64(n))
}

// RecordAcks counts acknowledgements of one publish request.
func (p *PrometheusCollector) RecordAcks(n int) {
	p.ensureRegistered()
	p.acks.Add(float64(n))
	p.acksPerPublish.Observe(float64(n))
}

// RecordRepublish counts a republish outcome.
func (p *PrometheusCollector) RecordRepublish(ok bool) {
	p.ensureRegistered()
	result := "failure"
	if ok {
		result = "success"
	}
	p.republish.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) RecordLostMessages(n int) {
	p.ensureRegistered()
	p.lostMessages.Add(float64(n))
}

func (p *PrometheusCollector) RecordDroppedMessage() {
	p.ensureRegistered()
	p.droppedMessages.Inc()
}

// RecordPublishState counts each flag of state. KeepAlive is not a state
// change and is ignored.
func (p *PrometheusCollector) RecordPublishState(state subscription.PublishState) {
	p.ensureRegistered()
	for _, f := range publishStates {
		if state.Has(f) {
			p.publishState.WithLabelValues(f.String()).Inc()
		}
	}
}
