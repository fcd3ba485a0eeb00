// Package metrics exposes poll-cycle and action counters over a Prometheus
// /metrics endpoint, served on fasthttp. Grounded on the pack's
// EdgeComet-engine cache-daemon metrics component (prometheus.Registry +
// promhttp.HandlerFor wrapped with fasthttpadaptor), since the teacher
// repo carries no metrics layer of its own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

type Metrics struct {
	httpHandler fasthttp.RequestHandler

	itemsEvaluatedTotal *prometheus.CounterVec
	conditionsMatched   *prometheus.CounterVec
	actionsTotal        *prometheus.CounterVec
	pollCycleDuration   prometheus.Histogram
	pollErrorsTotal     *prometheus.CounterVec
	queueDepth          *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "automod"
	}

	m := &Metrics{}

	m.itemsEvaluatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_evaluated_total",
		Help:      "Total number of items pulled off a queue and evaluated against a ruleset.",
	}, []string{"community", "queue"})

	m.conditionsMatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conditions_matched_total",
		Help:      "Total number of conditions whose match clauses evaluated true.",
	}, []string{"community"})

	m.actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Total number of remote actions executed, by action name.",
	}, []string{"community", "action"})

	m.pollCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_cycle_duration_seconds",
		Help:      "Wall-clock duration of one across-all-communities poll cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	m.pollErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_errors_total",
		Help:      "Total number of queue-fetch or action errors encountered during a poll cycle.",
	}, []string{"community", "kind"})

	m.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Number of items returned by the most recent fetch of a community's queue.",
	}, []string{"community", "queue"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		m.itemsEvaluatedTotal,
		m.conditionsMatched,
		m.actionsTotal,
		m.pollCycleDuration,
		m.pollErrorsTotal,
		m.queueDepth,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
	m.httpHandler = fasthttpadaptor.NewFastHTTPHandler(handler)

	return m
}

func (m *Metrics) ItemEvaluated(community, queue string) {
	m.itemsEvaluatedTotal.WithLabelValues(community, queue).Inc()
}

func (m *Metrics) ConditionMatched(community string) {
	m.conditionsMatched.WithLabelValues(community).Inc()
}

func (m *Metrics) ActionTaken(community, action string) {
	m.actionsTotal.WithLabelValues(community, action).Inc()
}

func (m *Metrics) ObservePollCycle(seconds float64) {
	m.pollCycleDuration.Observe(seconds)
}

func (m *Metrics) PollError(community, kind string) {
	m.pollErrorsTotal.WithLabelValues(community, kind).Inc()
}

func (m *Metrics) SetQueueDepth(community, queue string, depth int) {
	m.queueDepth.WithLabelValues(community, queue).Set(float64(depth))
}

// ServeHTTP renders the current metric values in the Prometheus text
// exposition format.
func (m *Metrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	m.httpHandler(ctx)
}
