package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector tracks ledger operation outcomes. A nil *Collector is a no-op so
// services can be constructed without metrics in tests.
type Collector struct {
	registry        *prometheus.Registry
	operationsTotal *prometheus.CounterVec
	amounts         prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		operationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total ledger mutations by operation and outcome",
		}, []string{"operation", "status"}),
		amounts: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_operation_amount",
			Help:    "Distribution of mutation amounts",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
	}
}

func (c *Collector) RecordOperation(operation string, success bool, amount decimal.Decimal) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	c.operationsTotal.WithLabelValues(operation, status).Inc()
	if success {
		f, _ := amount.Float64()
		c.amounts.Observe(f)
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
