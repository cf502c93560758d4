// Package metrics exposes giveaway engine counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	completions        *prometheus.CounterVec
	completionDuration prometheus.Histogram
	launched           prometheus.Counter
	sweeps             *prometheus.CounterVec
	created            prometheus.Counter
	rerolls            prometheus.Counter
	inFlight           prometheus.Gauge
	dqApplied          prometheus.Counter
	dqReverted         *prometheus.CounterVec
	commands           *prometheus.CounterVec
	tickets            *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "giveaway_bot"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.completions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "giveaway",
		Name:      "completions_total",
		Help:      "Completion attempts by outcome",
	}, []string{"outcome"})

	c.completionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "giveaway",
		Name:      "completion_duration_seconds",
		Help:      "Time from waking at the deadline to the terminal action",
		Buckets:   prometheus.DefBuckets,
	})

	c.launched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "giveaway",
		Name:      "completions_launched_total",
		Help:      "Completion tasks started by creation, end or sweep",
	})

	c.sweeps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweep",
		Name:      "passes_total",
		Help:      "Reconciliation passes by result",
	}, []string{"result"})

	c.created = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "giveaway",
		Name:      "created_total",
		Help:      "Giveaways created",
	})

	c.rerolls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "giveaway",
		Name:      "rerolls_total",
		Help:      "Rerolls published",
	})

	c.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "giveaway",
		Name:      "in_flight",
		Help:      "Completion tasks currently waiting or running",
	})

	c.dqApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "disqualify",
		Name:      "applied_total",
		Help:      "Disqualifications applied",
	})

	c.dqReverted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "disqualify",
		Name:      "reverted_total",
		Help:      "Expired disqualifications processed, by role removal result",
	}, []string{"result"})

	c.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "command",
		Name:      "invocations_total",
		Help:      "Chat commands by name and result",
	}, []string{"command", "result"})

	c.tickets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "modmail",
		Name:      "tickets_total",
		Help:      "Modmail tickets opened, by result",
	}, []string{"result"})

	c.registry.MustRegister(
		c.completions,
		c.completionDuration,
		c.launched,
		c.sweeps,
		c.created,
		c.rerolls,
		c.inFlight,
		c.dqApplied,
		c.dqReverted,
		c.commands,
		c.tickets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordCompletion(outcome string, d time.Duration) {
	c.completions.WithLabelValues(outcome).Inc()
	c.completionDuration.Observe(d.Seconds())
}

func (c *Collector) RecordLaunch() {
	c.launched.Inc()
}

func (c *Collector) RecordSweep(err error) {
	c.sweeps.WithLabelValues(result(err)).Inc()
}

func (c *Collector) RecordCreated() {
	c.created.Inc()
}

func (c *Collector) RecordReroll() {
	c.rerolls.Inc()
}

func (c *Collector) InFlightInc() {
	c.inFlight.Inc()
}

func (c *Collector) InFlightDec() {
	c.inFlight.Dec()
}

func (c *Collector) RecordDisqualified() {
	c.dqApplied.Inc()
}

func (c *Collector) RecordDisqualificationReverted(err error) {
	c.dqReverted.WithLabelValues(result(err)).Inc()
}

func (c *Collector) RecordCommand(command string, err error) {
	c.commands.WithLabelValues(command, result(err)).Inc()
}

func (c *Collector) RecordTicket(err error) {
	c.tickets.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
