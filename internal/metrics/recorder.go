// Package metrics provides observability hooks for stream processing.
package metrics

import "time"

// EventKindLabel enumerates the payload kinds counted per processed event.
type EventKindLabel string

const (
	KindNamedSet        EventKindLabel = "named_set"
	KindTargetCompleted EventKindLabel = "target_completed"
	KindActionCompleted EventKindLabel = "action_completed"
	KindOther           EventKindLabel = "other"
)

// Recorder defines observability hooks for stream and selection metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	IncEventProcessed(kind EventKindLabel)
	IncArtifactSelected(fileCount int)
	ObserveStreamDuration(d time.Duration)
	IncStreamOutcome(outcome string) // outcome: completed|canceled|failed
	IncResume(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) IncEventProcessed(EventKindLabel)    {}
func (NoopRecorder) IncArtifactSelected(int)             {}
func (NoopRecorder) ObserveStreamDuration(time.Duration) {}
func (NoopRecorder) IncStreamOutcome(string)             {}
func (NoopRecorder) IncResume(bool)                      {}
