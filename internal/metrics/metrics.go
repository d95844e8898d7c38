// Package metrics exposes prometheus collectors for query and agent
// execution telemetry.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	queriesTotal prometheus.Counter
	queryLatency prometheus.Histogram
	agentLatency prometheus.Histogram
	tokensTotal  *prometheus.CounterVec
	costTotal    *prometheus.CounterVec
	budgetUsage  prometheus.Gauge
	agentsUsed   prometheus.Gauge
	successRate  prometheus.Gauge

	registry *prometheus.Registry

	mu        sync.Mutex
	completed int
	failed    int
}

// New builds a Collector backed by its own registry so tests and embedded
// servers never collide on duplicate registration.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		queriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentiq_queries_total",
			Help: "Total queries processed",
		}),
		queryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "agentiq_query_latency_seconds",
			Help: "Query latency",
		}),
		agentLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "agentiq_agent_execution_latency_seconds",
			Help: "Agent execution latency",
		}),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentiq_tokens_total",
			Help: "Total tokens used",
		}, []string{"model", "type"}),
		costTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentiq_cost_total",
			Help: "Total cost in USD",
		}, []string{"service"}),
		budgetUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentiq_budget_usage_percent",
			Help: "Daily budget usage percentage",
		}),
		agentsUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentiq_agents_used",
			Help: "Number of agents used per query",
		}),
		successRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentiq_success_rate",
			Help: "Query success rate",
		}),
	}
}

// Handler serves the collector's registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordQueryStart() time.Time {
	return time.Now()
}

func (c *Collector) RecordQueryEnd(start time.Time, success bool) {
	c.queryLatency.Observe(time.Since(start).Seconds())
	c.queriesTotal.Inc()

	c.mu.Lock()
	if success {
		c.completed++
	} else {
		c.failed++
	}
	completed, failed := c.completed, c.failed
	c.mu.Unlock()

	if total := completed + failed; total > 0 {
		c.successRate.Set(float64(completed) / float64(total))
	}
}

func (c *Collector) RecordAgentExecution(d time.Duration) {
	c.agentLatency.Observe(d.Seconds())
}

func (c *Collector) RecordTokenUsage(model string, inputTokens, outputTokens int) {
	c.tokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	c.tokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
}

func (c *Collector) RecordCost(cost float64, service string) {
	if service == "" {
		service = "llm"
	}
	c.costTotal.WithLabelValues(service).Add(cost)
}

func (c *Collector) SetBudgetUsage(percent float64) {
	if percent > 100 {
		percent = 100
	}
	c.budgetUsage.Set(percent)
}

func (c *Collector) RecordAgentsUsed(count int) {
	c.agentsUsed.Set(float64(count))
}

// Summary reports the counters kept outside prometheus, for the stats
// endpoints.
type Summary struct {
	TotalQueries  int     `json:"total_queries"`
	QueriesFailed int     `json:"queries_failed"`
	SuccessRate   float64 `json:"success_rate"`
}

func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{
		TotalQueries:  c.completed + c.failed,
		QueriesFailed: c.failed,
	}
	if s.TotalQueries > 0 {
		s.SuccessRate = float64(c.completed) / float64(s.TotalQueries)
	}
	return s
}
