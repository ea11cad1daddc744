// Package metrics collects Prometheus metrics for the publication flow.
package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the workflow records through.  A nil Recorder
// is never passed around; use NewNop when metrics are disabled.
type Recorder interface {
    RecordSubmission()
    RecordPaymentOutcome(outcome string)
    RecordPublication()
}

// Collector implements Recorder on Prometheus counters.
type Collector struct {
    submissions  prometheus.Counter
    outcomes     *prometheus.CounterVec
    publications prometheus.Counter
}

// NewCollector registers the marketplace counters on reg and returns the
// collector.
func NewCollector(reg prometheus.Registerer) *Collector {
    c := &Collector{
        submissions: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "marketplace_listing_submissions_total",
            Help: "Listings submitted and persisted as pending.",
        }),
        outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "marketplace_payment_outcomes_total",
            Help: "Terminal payment attempt outcomes by kind.",
        }, []string{"outcome"}),
        publications: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "marketplace_listings_published_total",
            Help: "Listings transitioned from pending to completed.",
        }),
    }
    reg.MustRegister(c.submissions, c.outcomes, c.publications)
    return c
}

func (c *Collector) RecordSubmission() { c.submissions.Inc() }

func (c *Collector) RecordPaymentOutcome(outcome string) {
    c.outcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPublication() { c.publications.Inc() }

// NewRegistry returns a registry preloaded with the standard Go and
// process collectors.
func NewRegistry() *prometheus.Registry {
    reg := prometheus.NewRegistry()
    reg.MustRegister(
        collectors.NewGoCollector(),
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )
    return reg
}

// Handler exposes the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
    return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func NewNop() Nop { return Nop{} }

func (Nop) RecordSubmission() {}

func (Nop) RecordPaymentOutcome(string) {}

func (Nop) RecordPublication() {}
