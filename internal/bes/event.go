// Package bes defines the build-event-stream data model consumed by
// selectors. The wire format is owned by the build tool; this package only
// models the payload kinds the selection core interprets and passes every
// other kind through untouched.
package bes

import (
	"encoding/json"

	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// BuildEvent is one message from a build-event stream. At most one payload
// field is set; events carrying none of the modeled payloads are delivered
// but ignored by selectors.
type BuildEvent struct {
	ID BuildEventID `json:"id"`

	// LastMessage marks the final event of a stream. Tailing sources use
	// it to stop following a file that is still being appended to.
	LastMessage bool `json:"lastMessage,omitempty"`

	NamedSetOfFiles *NamedSetOfFiles `json:"namedSetOfFiles,omitempty"`
	Completed       *TargetCompleted `json:"completed,omitempty"`
	Action          *ActionCompleted `json:"action,omitempty"`
}

// BuildEventID identifies the event. Exactly one variant is set for the
// payload kinds modeled here.
type BuildEventID struct {
	NamedSet        *NamedSetID        `json:"namedSet,omitempty"`
	TargetCompleted *TargetCompletedID `json:"targetCompleted,omitempty"`
	ActionCompleted *ActionCompletedID `json:"actionCompleted,omitempty"`
}

// NamedSetID identifies a NamedSetOfFiles declaration.
type NamedSetID struct {
	ID string `json:"id"`
}

// TargetCompletedID identifies a target completion, including the aspect
// that produced the outputs.
type TargetCompletedID struct {
	Label  string `json:"label"`
	Aspect string `json:"aspect,omitempty"`
}

// ActionCompletedID identifies a completed build action by its owning label
// and primary output path.
type ActionCompletedID struct {
	Label         string `json:"label"`
	PrimaryOutput string `json:"primaryOutput"`
}

// NamedSetOfFiles declares an id-referenced group of output files so large
// file lists are not repeated across referencing events.
type NamedSetOfFiles struct {
	Files []File `json:"files,omitempty"`
}

// File is one output file descriptor: a name plus an opaque content/location
// reference produced by the build tool.
type File struct {
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

// TargetCompleted announces a target's completion, referencing zero or more
// filesets by id.
type TargetCompleted struct {
	Success     bool     `json:"success,omitempty"`
	OutputGroup string   `json:"outputGroup,omitempty"`
	FileSets    []string `json:"fileSets,omitempty"`
}

// ActionCompleted announces completion of a single build action.
type ActionCompleted struct {
	Success       bool   `json:"success,omitempty"`
	Type          string `json:"type,omitempty"`
	PrimaryOutput File   `json:"primaryOutput"`
}

// Decode parses one JSON-encoded build event.
func Decode(data []byte) (*BuildEvent, error) {
	var event BuildEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, foundation.InvalidArgumentError("undecodable build event").
			WithComponent("bes").
			WithCause(err).
			Build()
	}
	return &event, nil
}

// NewNamedSetEvent constructs a NamedSetOfFiles event. Primarily used by
// tests and in-process event producers.
func NewNamedSetEvent(id string, files ...File) *BuildEvent {
	return &BuildEvent{
		ID:              BuildEventID{NamedSet: &NamedSetID{ID: id}},
		NamedSetOfFiles: &NamedSetOfFiles{Files: files},
	}
}

// NewTargetCompletedEvent constructs a TargetCompleted event.
func NewTargetCompletedEvent(label, aspect, outputGroup string, success bool, fileSets ...string) *BuildEvent {
	return &BuildEvent{
		ID: BuildEventID{TargetCompleted: &TargetCompletedID{Label: label, Aspect: aspect}},
		Completed: &TargetCompleted{
			Success:     success,
			OutputGroup: outputGroup,
			FileSets:    fileSets,
		},
	}
}

// NewActionCompletedEvent constructs an ActionCompleted event.
func NewActionCompletedEvent(label, actionType string, success bool, primaryOutput File) *BuildEvent {
	return &BuildEvent{
		ID: BuildEventID{ActionCompleted: &ActionCompletedID{
			Label:         label,
			PrimaryOutput: primaryOutput.Name,
		}},
		Action: &ActionCompleted{
			Success:       success,
			Type:          actionType,
			PrimaryOutput: primaryOutput,
		},
	}
}
