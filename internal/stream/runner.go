package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/index"
	"git.home.luguber.info/inful/besselect/internal/metrics"
	"git.home.luguber.info/inful/besselect/internal/selector"
)

// Summary reports what a completed run consumed and produced.
type Summary struct {
	Events    int
	Artifacts int
	Files     int
	Duration  time.Duration
}

// Runner drives one build-event stream through a selector, optionally
// persisting selected artifacts to an index.
type Runner struct {
	runID    string
	sel      selector.AnySelector
	source   Source
	store    index.Store // nil disables indexing
	recorder metrics.Recorder

	artifacts []bes.Artifact
}

// NewRunner creates a runner for a single stream. The store may be nil;
// passing a nil recorder installs the noop recorder.
func NewRunner(sel selector.AnySelector, source Source, store index.Store, recorder metrics.Recorder) *Runner {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Runner{
		runID:    uuid.NewString(),
		sel:      sel,
		source:   source,
		store:    store,
		recorder: recorder,
	}
}

// RunID returns the identifier artifacts of this run are indexed under.
func (r *Runner) RunID() string {
	return r.runID
}

// Artifacts returns the artifacts selected so far, in selection order.
func (r *Runner) Artifacts() []bes.Artifact {
	return r.artifacts
}

// Resume restores selector state from a previous run's checkpoint blobs.
// Must be called before Run.
func (r *Runner) Resume(states []selector.State) error {
	err := selector.Deserialize(r.sel, states)
	r.recorder.IncResume(err == nil)
	if err != nil {
		return err
	}
	slog.Info("resumed selector state", "run_id", r.runID, "blobs", len(states))
	return nil
}

// Checkpoint captures the selector's current state for later Resume. The
// second return is false for stateless selectors, which have nothing to
// checkpoint.
func (r *Runner) Checkpoint() (selector.State, bool) {
	var state selector.State
	ok := r.sel.SerializeInto(&state)
	return state, ok
}

// Run consumes the source until exhaustion, feeding every event to the
// selector. It returns the summary together with the first error from the
// source, the selector input, or the index.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var summary Summary

	for {
		event, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Duration = time.Since(start)
			r.recorder.IncStreamOutcome(outcomeFor(err))
			return summary, err
		}

		summary.Events++
		r.recorder.IncEventProcessed(eventKind(event))

		result := r.sel.Select(event)
		if result.IsNone() {
			continue
		}
		artifact := result.Unwrap()
		summary.Artifacts++
		summary.Files += len(artifact.Files)
		r.recorder.IncArtifactSelected(len(artifact.Files))
		r.artifacts = append(r.artifacts, artifact)
		slog.Debug("artifact selected",
			"run_id", r.runID,
			"label", artifact.Label,
			"files", len(artifact.Files))

		if r.store != nil {
			if err := r.store.Put(ctx, r.runID, artifact); err != nil {
				summary.Duration = time.Since(start)
				r.recorder.IncStreamOutcome("failed")
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(start)
	r.recorder.ObserveStreamDuration(summary.Duration)
	r.recorder.IncStreamOutcome("completed")
	slog.Info("stream completed",
		"run_id", r.runID,
		"events", summary.Events,
		"artifacts", summary.Artifacts,
		"files", summary.Files,
		"duration", summary.Duration)
	return summary, nil
}

func outcomeFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "failed"
}

func eventKind(event *bes.BuildEvent) metrics.EventKindLabel {
	switch {
	case event.NamedSetOfFiles != nil:
		return metrics.KindNamedSet
	case event.Completed != nil:
		return metrics.KindTargetCompleted
	case event.Action != nil:
		return metrics.KindActionCompleted
	default:
		return metrics.KindOther
	}
}
