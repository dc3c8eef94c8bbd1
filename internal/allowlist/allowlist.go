// Package allowlist provides compiled pattern sets for filtering names in
// build-event streams: file names, output groups and target aspects.
package allowlist

import (
	"regexp"

	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// RegexSet is a compiled set of full-match patterns. The zero value matches
// nothing, which is the default policy for file-name and output-group
// allowlists.
type RegexSet struct {
	patterns []*regexp.Regexp
}

// Build compiles the provided patterns into a RegexSet. Each pattern is
// anchored so it must match the entire candidate string. Compilation errors
// surface immediately rather than at first use.
func Build(patterns []string) (RegexSet, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`\A(?:` + p + `)\z`)
		if err != nil {
			return RegexSet{}, foundation.ConfigurationError("invalid allowlist pattern").
				WithCause(err).
				WithContext(foundation.Fields{"pattern": p}).
				Build()
		}
		compiled = append(compiled, re)
	}
	return RegexSet{patterns: compiled}, nil
}

// MatchAll builds a RegexSet that matches every string. It goes through the
// same fallible construction path as Build so callers keep a single error
// surface.
func MatchAll() (RegexSet, error) {
	return Build([]string{`.*`})
}

// Matches reports whether the candidate matches any pattern in the set.
// An empty set matches nothing.
func (s RegexSet) Matches(candidate string) bool {
	for _, re := range s.patterns {
		if re.MatchString(candidate) {
			return true
		}
	}
	return false
}

// Empty reports whether the set contains no patterns.
func (s RegexSet) Empty() bool {
	return len(s.patterns) == 0
}
