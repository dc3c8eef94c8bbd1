package selector

import (
	"testing"

	"git.home.luguber.info/inful/besselect/internal/allowlist"
	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/foundation"
)

func testOptions(t *testing.T) AspectOptions {
	t.Helper()
	options, err := DefaultAspectOptions()
	if err != nil {
		t.Fatalf("DefaultAspectOptions failed: %v", err)
	}
	files, err := allowlist.Build([]string{`.*\.kzip`})
	if err != nil {
		t.Fatalf("Build file allowlist failed: %v", err)
	}
	groups, err := allowlist.Build([]string{`compilation_unit`})
	if err != nil {
		t.Fatalf("Build group allowlist failed: %v", err)
	}
	options.FileNameAllowlist = files
	options.OutputGroupAllowlist = groups
	return options
}

func filesetEvent(id string, names ...string) *bes.BuildEvent {
	files := make([]bes.File, 0, len(names))
	for _, n := range names {
		files = append(files, bes.File{Name: n, URI: "file:///out/" + n})
	}
	return bes.NewNamedSetEvent(id, files...)
}

func targetEvent(label string, filesets ...string) *bes.BuildEvent {
	return bes.NewTargetCompletedEvent(label, "extract.bzl%extract", "compilation_unit", true, filesets...)
}

func TestAspectSelectorEitherOrder(t *testing.T) {
	tests := []struct {
		name   string
		events []*bes.BuildEvent
	}{
		{
			name: "fileset first",
			events: []*bes.BuildEvent{
				filesetEvent("fs1", "a.kzip"),
				targetEvent("//pkg:tgt", "fs1"),
			},
		},
		{
			name: "target first",
			events: []*bes.BuildEvent{
				targetEvent("//pkg:tgt", "fs1"),
				filesetEvent("fs1", "a.kzip"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAspectSelector(testOptions(t))

			var artifacts []bes.Artifact
			for _, event := range tt.events {
				if result := s.Select(event); result.IsSome() {
					artifacts = append(artifacts, result.Unwrap())
				}
			}

			if len(artifacts) != 1 {
				t.Fatalf("expected exactly one artifact, got %d", len(artifacts))
			}
			artifact := artifacts[0]
			if artifact.Label != "//pkg:tgt" {
				t.Errorf("expected label //pkg:tgt, got %s", artifact.Label)
			}
			if len(artifact.Files) != 1 || artifact.Files[0].Path != "a.kzip" {
				t.Errorf("unexpected files: %+v", artifact.Files)
			}
			if artifact.Files[0].URI != "file:///out/a.kzip" {
				t.Errorf("content reference not passed through: %+v", artifact.Files[0])
			}
		})
	}
}

func TestAspectSelectorFiltersFileNames(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	s.Select(filesetEvent("fs1", "a.kzip", "a.o", "a.d", "b.kzip"))
	result := s.Select(targetEvent("//pkg:tgt", "fs1"))

	if result.IsNone() {
		t.Fatal("expected an artifact")
	}
	files := result.Unwrap().Files
	if len(files) != 2 {
		t.Fatalf("expected 2 allowlisted files, got %d: %+v", len(files), files)
	}
	if files[0].Path != "a.kzip" || files[1].Path != "b.kzip" {
		t.Errorf("unexpected files: %+v", files)
	}
}

func TestAspectSelectorDisposesOnce(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	s.Select(filesetEvent("fs1", "a.kzip"))
	if result := s.Select(targetEvent("//pkg:one", "fs1")); result.IsNone() {
		t.Fatal("expected artifact for first claim")
	}

	// Re-feeding the same id must not produce anything nor reinstate it.
	if result := s.Select(filesetEvent("fs1", "a.kzip")); result.IsSome() {
		t.Error("replayed fileset must be inert")
	}
	if result := s.Select(targetEvent("//pkg:two", "fs1")); result.IsSome() {
		t.Error("disposed id must not satisfy a later target")
	}
	// And no pending entry may have been recorded for the disposed id.
	if result := s.Select(filesetEvent("fs1", "a.kzip")); result.IsSome() {
		t.Error("disposed id resurrected via pending")
	}
}

func TestAspectSelectorDefaultsSelectNothing(t *testing.T) {
	options, err := DefaultAspectOptions()
	if err != nil {
		t.Fatalf("DefaultAspectOptions failed: %v", err)
	}
	// Output groups match nothing by default, as do file names.
	s := NewAspectSelector(options)

	orders := [][]*bes.BuildEvent{
		{filesetEvent("fs1", "a.kzip"), targetEvent("//pkg:tgt", "fs1")},
		{targetEvent("//pkg:tgt", "fs1"), filesetEvent("fs1", "a.kzip")},
	}
	for _, events := range orders {
		for _, event := range events {
			if result := s.Select(event); result.IsSome() {
				t.Fatalf("default options must never select, got %v", result)
			}
		}
	}
}

func TestAspectSelectorMatchNothingFileNames(t *testing.T) {
	options := testOptions(t)
	options.FileNameAllowlist = allowlist.RegexSet{}
	s := NewAspectSelector(options)

	events := []*bes.BuildEvent{
		targetEvent("//pkg:one", "fs1"),
		filesetEvent("fs1", "a.kzip"),
		filesetEvent("fs2", "b.kzip"),
		targetEvent("//pkg:two", "fs2"),
	}
	for _, event := range events {
		if result := s.Select(event); result.IsSome() {
			t.Fatalf("no artifact may be emitted when file names match nothing, got %v", result)
		}
	}
}

func TestAspectSelectorRejectsUnmatchedAspectOrGroup(t *testing.T) {
	options := testOptions(t)
	aspects, err := allowlist.Build([]string{`extract\.bzl%extract`})
	if err != nil {
		t.Fatalf("Build aspect allowlist failed: %v", err)
	}
	options.TargetAspectAllowlist = aspects
	s := NewAspectSelector(options)

	s.Select(filesetEvent("fs1", "a.kzip"))

	wrongAspect := bes.NewTargetCompletedEvent("//pkg:tgt", "other.bzl%other", "compilation_unit", true, "fs1")
	if result := s.Select(wrongAspect); result.IsSome() {
		t.Error("unmatched aspect must be rejected")
	}
	wrongGroup := bes.NewTargetCompletedEvent("//pkg:tgt", "extract.bzl%extract", "default", true, "fs1")
	if result := s.Select(wrongGroup); result.IsSome() {
		t.Error("unmatched output group must be rejected")
	}

	// The fileset was never claimed by a matching event, so a matching
	// TargetCompleted can still consume it.
	ok := targetEvent("//pkg:tgt", "fs1")
	if result := s.Select(ok); result.IsNone() {
		t.Error("matching event should consume the retained fileset")
	}
}

func TestAspectSelectorRejectsFailedTargets(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	s.Select(filesetEvent("fs1", "a.kzip"))
	failed := bes.NewTargetCompletedEvent("//pkg:tgt", "extract.bzl%extract", "compilation_unit", false, "fs1")
	if result := s.Select(failed); result.IsSome() {
		t.Fatalf("failed completion must not emit, got %v", result)
	}

	// The failed event left the fileset untouched: a successful completion
	// can still claim it.
	if result := s.Select(targetEvent("//pkg:tgt", "fs1")); result.IsNone() {
		t.Error("retained fileset should survive a failed completion")
	}

	// Target-first order: a failed completion records no pending entry, so
	// the fileset's later arrival completes nothing.
	failedFirst := bes.NewTargetCompletedEvent("//pkg:other", "extract.bzl%extract", "compilation_unit", false, "fs2")
	s.Select(failedFirst)
	if result := s.Select(filesetEvent("fs2", "b.kzip")); result.IsSome() {
		t.Error("fileset referenced only by a failed completion must not emit")
	}
}

func TestAspectSelectorAccumulatesMultipleFilesets(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	s.Select(filesetEvent("fs1", "a.kzip"))
	s.Select(filesetEvent("fs2", "b.kzip"))
	result := s.Select(targetEvent("//pkg:tgt", "fs1", "fs2"))

	if result.IsNone() {
		t.Fatal("expected an artifact")
	}
	if got := len(result.Unwrap().Files); got != 2 {
		t.Errorf("expected files from both filesets, got %d", got)
	}
}

func TestAspectSelectorDeferredReference(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	// fs1 is available, fs2 has not arrived: nothing is emitted now.
	s.Select(filesetEvent("fs1", "a.kzip"))
	if result := s.Select(targetEvent("//pkg:tgt", "fs1", "fs2")); result.IsSome() {
		t.Fatal("no artifact may be emitted while a reference is deferred")
	}

	// The deferred fileset completes the target when it arrives.
	result := s.Select(filesetEvent("fs2", "b.kzip"))
	if result.IsNone() {
		t.Fatal("expected deferred reference to complete an artifact")
	}
	artifact := result.Unwrap()
	if artifact.Label != "//pkg:tgt" {
		t.Errorf("expected label //pkg:tgt, got %s", artifact.Label)
	}
	if len(artifact.Files) != 1 || artifact.Files[0].Path != "b.kzip" {
		t.Errorf("unexpected files: %+v", artifact.Files)
	}
}

func TestAspectSelectorDisposedEmptyReferenceIsSilentlyDropped(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	// All files filtered out: the id is disposed with nothing retained.
	s.Select(filesetEvent("fs1", "a.o", "a.d"))

	// The reference contributes no files; with nothing else to contribute
	// there is no artifact, and no pending entry is recorded.
	if result := s.Select(targetEvent("//pkg:tgt", "fs1")); result.IsSome() {
		t.Error("reference to a disposed, empty fileset must contribute nothing")
	}
	if result := s.Select(filesetEvent("fs1", "a.kzip")); result.IsSome() {
		t.Error("disposed id must stay inert")
	}
}

func TestAspectSelectorPendingCompletionRequiresFiles(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	s.Select(targetEvent("//pkg:tgt", "fs1"))
	// The awaited fileset arrives but every file is filtered out.
	if result := s.Select(filesetEvent("fs1", "a.o")); result.IsSome() {
		t.Error("an artifact must carry at least one allowlisted file")
	}
}

func TestAspectSelectorSerializeEmptyButValid(t *testing.T) {
	s := NewAspectSelector(testOptions(t))

	var state State
	if !s.SerializeInto(&state) {
		t.Fatal("stateful selector must always serialize")
	}
	if !state.Is(AspectStateType) {
		t.Errorf("unexpected state type %q", state.Type)
	}
	var msg aspectStateMessage
	if err := state.Decode(&msg); err != nil {
		t.Fatalf("empty state must still decode: %v", err)
	}
}

func TestAspectSelectorDeserializeErrors(t *testing.T) {
	t.Run("wrong type", func(t *testing.T) {
		s := NewAspectSelector(testOptions(t))
		err := s.DeserializeFrom(State{Type: "besselect.SomethingElse", Value: []byte(`{}`)})
		if !foundation.IsErrorCode(err, foundation.ErrorCodeFailedPrecondition) {
			t.Errorf("expected failed_precondition, got %v", err)
		}
	})

	t.Run("undecodable value", func(t *testing.T) {
		s := NewAspectSelector(testOptions(t))
		err := s.DeserializeFrom(State{Type: AspectStateType, Value: []byte(`{broken`)})
		if !foundation.IsErrorCode(err, foundation.ErrorCodeInvalidArgument) {
			t.Errorf("expected invalid_argument, got %v", err)
		}
	})
}

// TestAspectSelectorRoundTrip splits one stream at every possible boundary
// and checks that checkpoint/restore never changes the emitted artifacts.
func TestAspectSelectorRoundTrip(t *testing.T) {
	events := []*bes.BuildEvent{
		targetEvent("//pkg:one", "fs1"),
		filesetEvent("fs2", "b.kzip"),
		filesetEvent("fs1", "a.kzip"),
		filesetEvent("fs3", "ignored.o"),
		targetEvent("//pkg:two", "fs2", "fs3"),
		targetEvent("//pkg:three", "fs4"),
		filesetEvent("fs4", "c.kzip", "c.o"),
	}

	run := func(events []*bes.BuildEvent, s *AspectSelector) []bes.Artifact {
		var artifacts []bes.Artifact
		for _, event := range events {
			if result := s.Select(event); result.IsSome() {
				artifacts = append(artifacts, result.Unwrap())
			}
		}
		return artifacts
	}

	reference := run(events, NewAspectSelector(testOptions(t)))
	if len(reference) == 0 {
		t.Fatal("reference run produced no artifacts; test data is broken")
	}

	for split := 0; split <= len(events); split++ {
		first := NewAspectSelector(testOptions(t))
		artifacts := run(events[:split], first)

		var state State
		if !first.SerializeInto(&state) {
			t.Fatalf("split %d: SerializeInto returned false", split)
		}

		second := NewAspectSelector(testOptions(t))
		if err := second.DeserializeFrom(state); err != nil {
			t.Fatalf("split %d: DeserializeFrom failed: %v", split, err)
		}
		artifacts = append(artifacts, run(events[split:], second)...)

		if len(artifacts) != len(reference) {
			t.Fatalf("split %d: got %d artifacts, want %d", split, len(artifacts), len(reference))
		}
		for i := range reference {
			if artifacts[i].Label != reference[i].Label {
				t.Errorf("split %d: artifact %d label %q, want %q", split, i, artifacts[i].Label, reference[i].Label)
			}
			if len(artifacts[i].Files) != len(reference[i].Files) {
				t.Errorf("split %d: artifact %d has %d files, want %d", split, i, len(artifacts[i].Files), len(reference[i].Files))
				continue
			}
			for j := range reference[i].Files {
				if artifacts[i].Files[j] != reference[i].Files[j] {
					t.Errorf("split %d: artifact %d file %d = %+v, want %+v", split, i, j, artifacts[i].Files[j], reference[i].Files[j])
				}
			}
		}
	}
}
