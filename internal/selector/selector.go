// Package selector finds extraction artifacts in a stream of build events.
//
// A Selector is fed every event of one logical stream, in delivered order,
// and may emit at most one artifact per event. Stateful selectors expose
// their correlation state through SerializeInto/DeserializeFrom so a stream
// split across process boundaries can be resumed without losing in-flight
// correlations or double-emitting artifacts.
package selector

import (
	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// Selector selects matching artifacts from build events.
type Selector interface {
	// Select is called once per event, in stream order. It may mutate
	// internal correlation state and returns the artifact the event
	// completed, if any. Replaying an already-seen event is not supported;
	// stream order is assumed not to repeat ids.
	Select(event *bes.BuildEvent) foundation.Option[bes.Artifact]

	// SerializeInto encodes per-stream selector state into state and
	// returns true. Stateful selectors always return true, writing a
	// fully-formed message even before any state has accumulated, so
	// callers can distinguish "nothing to persist" from "stateful but
	// currently empty". Stateless selectors return false.
	SerializeInto(state *State) bool

	// DeserializeFrom replaces internal state from the provided container.
	// Stateless selectors unconditionally fail with an unimplemented error.
	// Stateful selectors fail with a failed_precondition error when the
	// type name does not match, an invalid_argument error when the type
	// matches but the payload does not decode, and otherwise replace state
	// wholesale.
	DeserializeFrom(state State) error
}

// Deserialize scans states for a container matching the selector's state
// type and restores from it. It succeeds trivially for stateless selectors,
// fails with a not_found error when a stateful selector's state is absent
// from the list, and surfaces decode failures as invalid_argument.
func Deserialize(s Selector, states []State) error {
	for _, state := range states {
		err := s.DeserializeFrom(state)
		switch {
		case err == nil:
			return nil
		case foundation.IsErrorCode(err, foundation.ErrorCodeUnimplemented):
			// Stateless selector: nothing to restore.
			return nil
		case foundation.IsErrorCode(err, foundation.ErrorCodeFailedPrecondition):
			// Wrong state type, keep scanning.
			continue
		default:
			return err
		}
	}

	var probe State
	if !s.SerializeInto(&probe) {
		return nil
	}
	return foundation.NotFoundError("selector state").
		WithComponent("selector").
		WithOperation("deserialize").
		Build()
}
