package selector

import (
	"sort"

	"git.home.luguber.info/inful/besselect/internal/allowlist"
	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// AspectStateType names the state message produced by AspectSelector.
const AspectStateType = "besselect.AspectSelectorState"

// AspectOptions configures an AspectSelector's matching policy. Options are
// immutable for the selector's lifetime.
type AspectOptions struct {
	// FileNameAllowlist filters file names from NamedSetOfFiles events.
	// Matches nothing by default.
	FileNameAllowlist allowlist.RegexSet
	// OutputGroupAllowlist filters output-group names from TargetCompleted
	// events. Matches nothing by default.
	OutputGroupAllowlist allowlist.RegexSet
	// TargetAspectAllowlist filters aspect names from TargetCompleted
	// events. Matches everything by default.
	TargetAspectAllowlist allowlist.RegexSet
}

// DefaultAspectOptions builds the default matching policy: file names and
// output groups match nothing, target aspects match everything. The
// match-all set is compiled here so a pattern problem surfaces at
// construction rather than first use.
func DefaultAspectOptions() (AspectOptions, error) {
	aspects, err := allowlist.MatchAll()
	if err != nil {
		return AspectOptions{}, err
	}
	return AspectOptions{TargetAspectAllowlist: aspects}, nil
}

// aspectStateMessage is the serialized form of the selector's correlation
// state. It round-trips exactly through SerializeInto/DeserializeFrom.
type aspectStateMessage struct {
	Disposed []string                      `json:"disposed"`
	Filesets map[string][]bes.ArtifactFile `json:"filesets"`
	Pending  map[string]string             `json:"pending"`
}

// AspectSelector selects artifacts produced by extraction aspects by
// reconciling NamedSetOfFiles events against the TargetCompleted events
// that reference them. The two event classes may arrive in either order;
// the selector tolerates both without reprocessing any fileset id.
type AspectSelector struct {
	options AspectOptions

	// disposed records every fileset id already processed. It grows
	// monotonically and ids in it are never revisited.
	disposed map[string]struct{}
	// filesets maps a fileset id to its allowlist-filtered files, retained
	// only until a TargetCompleted claims it.
	filesets map[string][]bes.ArtifactFile
	// pending maps a fileset id to the target label waiting on it, retained
	// only until the fileset arrives.
	pending map[string]string
}

// NewAspectSelector constructs an AspectSelector with empty correlation
// state.
func NewAspectSelector(options AspectOptions) *AspectSelector {
	return &AspectSelector{
		options:  options,
		disposed: make(map[string]struct{}),
		filesets: make(map[string][]bes.ArtifactFile),
		pending:  make(map[string]string),
	}
}

// Select inspects one build event and emits the artifact it completed, if
// any. Not safe for concurrent use; the caller delivers one stream's events
// in order to one instance.
func (s *AspectSelector) Select(event *bes.BuildEvent) foundation.Option[bes.Artifact] {
	switch {
	case event.NamedSetOfFiles != nil && event.ID.NamedSet != nil:
		return s.selectFileSet(event.ID.NamedSet.ID, event.NamedSetOfFiles)
	case event.Completed != nil && event.ID.TargetCompleted != nil:
		return s.selectTargetCompleted(*event.ID.TargetCompleted, event.Completed)
	default:
		return foundation.None[bes.Artifact]()
	}
}

func (s *AspectSelector) selectFileSet(id string, fileset *bes.NamedSetOfFiles) foundation.Option[bes.Artifact] {
	if _, seen := s.disposed[id]; seen {
		// Each id is disposed exactly once; a repeated declaration is inert.
		return foundation.None[bes.Artifact]()
	}
	s.disposed[id] = struct{}{}

	files := s.filterFiles(fileset.Files)
	if label, ok := s.pending[id]; ok {
		delete(s.pending, id)
		if len(files) == 0 {
			return foundation.None[bes.Artifact]()
		}
		return foundation.Some(bes.Artifact{Label: label, Files: files})
	}

	if len(files) > 0 {
		s.filesets[id] = files
	}
	return foundation.None[bes.Artifact]()
}

func (s *AspectSelector) selectTargetCompleted(id bes.TargetCompletedID, payload *bes.TargetCompleted) foundation.Option[bes.Artifact] {
	// A failed completion is treated exactly like one outside the allowlists:
	// its fileset references are not consumed, not deferred, and not disposed,
	// so a retained fileset stays available to other referencing targets.
	if !payload.Success ||
		!s.options.TargetAspectAllowlist.Matches(id.Aspect) ||
		!s.options.OutputGroupAllowlist.Matches(payload.OutputGroup) {
		return foundation.None[bes.Artifact]()
	}

	var files []bes.ArtifactFile
	deferred := false
	for _, filesetID := range payload.FileSets {
		if held, ok := s.filesets[filesetID]; ok {
			delete(s.filesets, filesetID)
			files = append(files, held...)
			continue
		}
		if _, seen := s.disposed[filesetID]; !seen {
			s.pending[filesetID] = id.Label
			deferred = true
		}
		// An id disposed without a retained fileset had all of its files
		// filtered out; the reference contributes nothing.
	}

	if deferred || len(files) == 0 {
		return foundation.None[bes.Artifact]()
	}
	return foundation.Some(bes.Artifact{Label: id.Label, Files: files})
}

func (s *AspectSelector) filterFiles(files []bes.File) []bes.ArtifactFile {
	var selected []bes.ArtifactFile
	for _, f := range files {
		if s.options.FileNameAllowlist.Matches(f.Name) {
			selected = append(selected, bes.ArtifactFile{Path: f.Name, URI: f.URI})
		}
	}
	return selected
}

// SerializeInto encodes the accumulated correlation state. The message is
// always written, even when no state has accumulated yet, so callers can
// tell a stateful-but-empty selector apart from a stateless one.
func (s *AspectSelector) SerializeInto(state *State) bool {
	msg := aspectStateMessage{
		Disposed: make([]string, 0, len(s.disposed)),
		Filesets: make(map[string][]bes.ArtifactFile, len(s.filesets)),
		Pending:  make(map[string]string, len(s.pending)),
	}
	for id := range s.disposed {
		msg.Disposed = append(msg.Disposed, id)
	}
	sort.Strings(msg.Disposed)
	for id, files := range s.filesets {
		msg.Filesets[id] = files
	}
	for id, label := range s.pending {
		msg.Pending[id] = label
	}

	encoded, err := MarshalState(AspectStateType, msg)
	if err != nil {
		// The message holds only strings and string-keyed maps.
		panic("selector: aspect state marshal failed: " + err.Error())
	}
	*state = encoded
	return true
}

// DeserializeFrom validates the state's type name and replaces the current
// correlation state wholesale. No merging takes place.
func (s *AspectSelector) DeserializeFrom(state State) error {
	if !state.Is(AspectStateType) {
		return foundation.FailedPreconditionError("state type mismatch").
			WithComponent("selector").
			WithOperation("deserialize").
			WithContext(foundation.Fields{"got": state.Type, "want": AspectStateType}).
			Build()
	}

	var msg aspectStateMessage
	if err := state.Decode(&msg); err != nil {
		return foundation.InvalidArgumentError("undecodable aspect selector state").
			WithComponent("selector").
			WithOperation("deserialize").
			WithCause(err).
			Build()
	}

	s.disposed = make(map[string]struct{}, len(msg.Disposed))
	for _, id := range msg.Disposed {
		s.disposed[id] = struct{}{}
	}
	s.filesets = make(map[string][]bes.ArtifactFile, len(msg.Filesets))
	for id, files := range msg.Filesets {
		s.filesets[id] = files
	}
	s.pending = make(map[string]string, len(msg.Pending))
	for id, label := range msg.Pending {
		s.pending[id] = label
	}
	return nil
}
