package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncEventProcessed(KindNamedSet)
	r.IncArtifactSelected(3)
	r.ObserveStreamDuration(time.Second)
	r.IncStreamOutcome("completed")
	r.IncResume(true)
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncEventProcessed(KindNamedSet)
	r.IncEventProcessed(KindNamedSet)
	r.IncEventProcessed(KindTargetCompleted)
	r.IncArtifactSelected(2)
	r.IncResume(true)
	r.IncResume(false)

	if got := testutil.ToFloat64(r.eventsProcessed.WithLabelValues(string(KindNamedSet))); got != 2 {
		t.Errorf("named_set events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.artifactsSelected); got != 1 {
		t.Errorf("artifacts selected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.artifactFiles); got != 2 {
		t.Errorf("artifact files = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.resumes.WithLabelValues("success")); got != 1 {
		t.Errorf("successful resumes = %v, want 1", got)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.IncEventProcessed(KindOther)
	r.IncArtifactSelected(1)
	r.ObserveStreamDuration(time.Second)
	r.IncStreamOutcome("failed")
	r.IncResume(false)
}
