// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors recorded by the server.
type Metrics struct {
	registry *prometheus.Registry

	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	ExpensesCreated    prometheus.Counter
	SettlementsSaved   prometheus.Counter
	SuggestedTransfers prometheus.Histogram
	EmptySplits        prometheus.Counter
}

// New registers a fresh set of collectors on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitledger",
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		ExpensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "expenses_created_total",
			Help:      "Expenses recorded.",
		}),
		SettlementsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "settlements_recorded_total",
			Help:      "Settlement payments recorded.",
		}),
		SuggestedTransfers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "splitledger",
			Name:      "suggested_transfers",
			Help:      "Transfers suggested per balance computation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		EmptySplits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "empty_split_expenses_total",
			Help:      "Expenses with an empty split seen while computing balances.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RPCRequests,
		m.RPCDuration,
		m.ExpensesCreated,
		m.SettlementsSaved,
		m.SuggestedTransfers,
		m.EmptySplits,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
