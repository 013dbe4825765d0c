// Package metrics exposes Prometheus instrumentation for the callback service.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "build_callback"

// Recorder is safe for use by concurrent requests. A nil *Recorder records nothing.
type Recorder struct {
	reg            *prom.Registry
	requests       *prom.CounterVec
	storeDuration  *prom.HistogramVec
	terminalStatus *prom.CounterVec
}

// NewRecorder registers the service metrics on reg, or on a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	r := &Recorder{
		reg: reg,
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Build callbacks handled, by outcome",
		}, []string{"outcome"}),
		storeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "store_update_duration_seconds",
			Help:      "Duration of build run updates against the store",
			Buckets:   prom.DefBuckets,
		}, []string{"backend", "result"}),
		terminalStatus: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_status_total",
			Help:      "Terminal statuses recorded, by status",
		}, []string{"status"}),
	}
	reg.MustRegister(r.requests, r.storeDuration, r.terminalStatus)
	return r
}

func (r *Recorder) ObserveRequest(outcome string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveStoreUpdate(backend string, d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.storeDuration.WithLabelValues(backend, result).Observe(d.Seconds())
}

func (r *Recorder) ObserveTerminalStatus(status string) {
	if r == nil {
		return
	}
	r.terminalStatus.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
