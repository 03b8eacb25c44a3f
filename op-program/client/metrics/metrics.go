package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	opmetrics "github.com/mantlenetworkio/op-multiblock/op-service/metrics"
)

const Namespace = "op_multiblock"

// Cache tables of the L2 chain provider.
const (
	TableHeaders       = "headers"
	TableBlockRefs     = "block_refs"
	TablePayloads      = "payloads"
	TableSystemConfigs = "system_configs"
)

type Metricer interface {
	opmetrics.RefMetricer

	RecordCacheHit(table string)
	RecordCacheMiss(table string)
	RecordOracleRequest(source string)
	RecordHint(hintType string)
	RecordCommit()
	RecordStep(outcome string)
}

type Metrics struct {
	ns       string
	registry *prometheus.Registry
	factory  opmetrics.Factory

	opmetrics.RefMetrics

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	oracleRequests *prometheus.CounterVec
	hints          *prometheus.CounterVec
	commits        prometheus.Counter
	steps          *prometheus.CounterVec
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	return newMetrics(procName, opmetrics.NewRegistry())
}

func newMetrics(procName string, registry *prometheus.Registry) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	factory := opmetrics.With(registry)
	return &Metrics{
		ns:       ns,
		registry: registry,
		factory:  factory,

		RefMetrics: opmetrics.MakeRefMetrics(ns, factory),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "l2_cache",
			Name:      "hits_total",
			Help:      "Number of L2 chain provider lookups served from cache",
		}, []string{"table"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "l2_cache",
			Name:      "misses_total",
			Help:      "Number of L2 chain provider lookups that had to consult the oracle",
		}, []string{"table"}),
		oracleRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "oracle",
			Name:      "requests_total",
			Help:      "Number of preimage oracle requests, by kind of data requested",
		}, []string{"source"}),
		hints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "oracle",
			Name:      "hints_total",
			Help:      "Number of hints sent to the host, by hint type",
		}, []string{"type"}),
		commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "l2_cache",
			Name:      "commits_total",
			Help:      "Number of executed blocks committed to the L2 chain provider",
		}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "driver",
			Name:      "steps_total",
			Help:      "Number of derivation pipeline steps, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Document() []opmetrics.DocumentedMetric {
	return m.factory.Document()
}

func (m *Metrics) RecordCacheHit(table string) {
	m.cacheHits.WithLabelValues(table).Inc()
}

func (m *Metrics) RecordCacheMiss(table string) {
	m.cacheMisses.WithLabelValues(table).Inc()
}

func (m *Metrics) RecordOracleRequest(source string) {
	m.oracleRequests.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordHint(hintType string) {
	m.hints.WithLabelValues(hintType).Inc()
}

func (m *Metrics) RecordCommit() {
	m.commits.Inc()
}

func (m *Metrics) RecordStep(outcome string) {
	m.steps.WithLabelValues(outcome).Inc()
}

type noopMetrics struct {
	opmetrics.NoopRefMetrics
}

// NoopMetrics discards everything it is given.
var NoopMetrics Metricer = new(noopMetrics)

func (*noopMetrics) RecordCacheHit(string)      {}
func (*noopMetrics) RecordCacheMiss(string)     {}
func (*noopMetrics) RecordOracleRequest(string) {}
func (*noopMetrics) RecordHint(string)          {}
func (*noopMetrics) RecordCommit()              {}
func (*noopMetrics) RecordStep(string)          {}

