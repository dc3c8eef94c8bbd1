package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	eventsProcessed   *prom.CounterVec
	artifactsSelected prom.Counter
	artifactFiles     prom.Counter
	streamDuration    prom.Histogram
	streamOutcome     *prom.CounterVec
	resumes           *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on the
// provided registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		eventsProcessed: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "besselect",
			Name:      "events_processed_total",
			Help:      "Build events processed by payload kind",
		}, []string{"kind"}),
		artifactsSelected: prom.NewCounter(prom.CounterOpts{
			Namespace: "besselect",
			Name:      "artifacts_selected_total",
			Help:      "Artifacts selected from the stream",
		}),
		artifactFiles: prom.NewCounter(prom.CounterOpts{
			Namespace: "besselect",
			Name:      "artifact_files_total",
			Help:      "Files carried by selected artifacts",
		}),
		streamDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "besselect",
			Name:      "stream_duration_seconds",
			Help:      "Wall-clock duration of one stream run",
			Buckets:   prom.DefBuckets,
		}),
		streamOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "besselect",
			Name:      "stream_outcomes_total",
			Help:      "Stream run outcomes by final status",
		}, []string{"outcome"}),
		resumes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "besselect",
			Name:      "state_resumes_total",
			Help:      "Selector state restorations by result",
		}, []string{"result"}),
	}
	reg.MustRegister(
		pr.eventsProcessed,
		pr.artifactsSelected,
		pr.artifactFiles,
		pr.streamDuration,
		pr.streamOutcome,
		pr.resumes,
	)
	return pr
}

func (p *PrometheusRecorder) IncEventProcessed(kind EventKindLabel) {
	if p == nil || p.eventsProcessed == nil {
		return
	}
	p.eventsProcessed.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusRecorder) IncArtifactSelected(fileCount int) {
	if p == nil || p.artifactsSelected == nil {
		return
	}
	p.artifactsSelected.Inc()
	p.artifactFiles.Add(float64(fileCount))
}

func (p *PrometheusRecorder) ObserveStreamDuration(d time.Duration) {
	if p == nil || p.streamDuration == nil {
		return
	}
	p.streamDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStreamOutcome(outcome string) {
	if p == nil || p.streamOutcome == nil {
		return
	}
	p.streamOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncResume(success bool) {
	if p == nil || p.resumes == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	p.resumes.WithLabelValues(result).Inc()
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the
// provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
