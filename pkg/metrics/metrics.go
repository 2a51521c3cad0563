// Package metrics exposes the edge function's Prometheus instruments.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records per-request outcomes of the edge function.
type Metrics interface {
	ObserveResponse(branch string, status int)
	ObserveStage(stage string, d time.Duration)
	IncCacheWriteFailures()
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveResponse(string, int)        {}
func (Noop) ObserveStage(string, time.Duration) {}
func (Noop) IncCacheWriteFailures()             {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	responses          *prometheus.CounterVec
	stages             *prometheus.HistogramVec
	cacheWriteFailures prometheus.Counter
}

// NewProm builds the collectors and registers them with reg, or with the
// default registerer when reg is nil. Collectors already registered under
// the same names are reused, so repeated calls share one set of series.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses by branch and status",
		}, []string{"branch", "status"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency by stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		cacheWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_failures_total",
			Help:      "Derivative writes that failed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p.responses = register(reg, p.responses)
	p.stages = register(reg, p.stages)
	p.cacheWriteFailures = register(reg, p.cacheWriteFailures)
	return p
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (p *Prom) ObserveResponse(branch string, status int) {
	p.responses.WithLabelValues(branch, strconv.Itoa(status)).Inc()
}

func (p *Prom) ObserveStage(stage string, d time.Duration) {
	p.stages.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Prom) IncCacheWriteFailures() {
	p.cacheWriteFailures.Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics gathered from g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
