package selector

import (
	"regexp"

	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// ExtraActionSelector selects artifacts emitted by extra actions: every
// successful ActionCompleted event whose action type passes the configured
// filter yields a single-file artifact for the action's primary output.
// It keeps no per-stream state.
type ExtraActionSelector struct {
	actionMatches func(actionType string) bool
}

// NewExtraActionSelector restricts selection to the given action types.
// An empty set selects any successful action.
func NewExtraActionSelector(actionTypes ...string) *ExtraActionSelector {
	if len(actionTypes) == 0 {
		return &ExtraActionSelector{
			actionMatches: func(string) bool { return true },
		}
	}
	allowed := make(map[string]struct{}, len(actionTypes))
	for _, t := range actionTypes {
		allowed[t] = struct{}{}
	}
	return &ExtraActionSelector{
		actionMatches: func(actionType string) bool {
			_, ok := allowed[actionType]
			return ok
		},
	}
}

// NewExtraActionPatternSelector restricts selection to action types matching
// the pattern. Both a nil and an empty pattern match nothing; note this is
// the opposite default from the empty action-type set above.
func NewExtraActionPatternSelector(pattern *regexp.Regexp) *ExtraActionSelector {
	if pattern == nil || pattern.String() == "" {
		return &ExtraActionSelector{
			actionMatches: func(string) bool { return false },
		}
	}
	return &ExtraActionSelector{actionMatches: pattern.MatchString}
}

// Select emits an artifact for successful, matching ActionCompleted events.
func (s *ExtraActionSelector) Select(event *bes.BuildEvent) foundation.Option[bes.Artifact] {
	if event.Action == nil || event.ID.ActionCompleted == nil {
		return foundation.None[bes.Artifact]()
	}
	if !event.Action.Success || !s.actionMatches(event.Action.Type) {
		return foundation.None[bes.Artifact]()
	}
	id := event.ID.ActionCompleted
	return foundation.Some(bes.Artifact{
		Label: id.Label,
		Files: []bes.ArtifactFile{{
			Path: id.PrimaryOutput,
			URI:  event.Action.PrimaryOutput.URI,
		}},
	})
}

// SerializeInto returns false: there is no state to persist.
func (s *ExtraActionSelector) SerializeInto(*State) bool {
	return false
}

// DeserializeFrom always fails: the selector is stateless.
func (s *ExtraActionSelector) DeserializeFrom(State) error {
	return foundation.UnimplementedError("stateless selector").
		WithComponent("selector").
		WithOperation("deserialize").
		Build()
}
