package allowlist

import "testing"

func TestZeroValueMatchesNothing(t *testing.T) {
	var s RegexSet
	if s.Matches("") || s.Matches("anything") {
		t.Error("zero-value RegexSet should match nothing")
	}
	if !s.Empty() {
		t.Error("zero-value RegexSet should be empty")
	}
}

func TestBuildFullMatch(t *testing.T) {
	s, err := Build([]string{`.*\.kzip`, `out/.*`})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tests := []struct {
		candidate string
		want      bool
	}{
		{"compilation.kzip", true},
		{"out/foo.o", true},
		{"compilation.kzip.bak", false}, // full match, not prefix
		{"other/foo.o", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.Matches(tt.candidate); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.candidate, got, tt.want)
		}
	}
}

func TestBuildRejectsBadPattern(t *testing.T) {
	if _, err := Build([]string{`[unclosed`}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestMatchAll(t *testing.T) {
	s, err := MatchAll()
	if err != nil {
		t.Fatalf("MatchAll failed: %v", err)
	}
	for _, candidate := range []string{"", "anything", "a/b/c.o"} {
		if !s.Matches(candidate) {
			t.Errorf("MatchAll set should match %q", candidate)
		}
	}
}
