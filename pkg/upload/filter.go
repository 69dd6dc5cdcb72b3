package upload

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is returned when a glob pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Filter selects directory entries by base name using doublestar globs.
//
// An entry passes when it matches at least one include (or there are no
// includes) and matches no exclude. A nil Filter passes everything.
type Filter struct {
	includes []string
	excludes []string
}

// NewFilter compiles include and exclude patterns. It returns nil when both
// lists are empty.
func NewFilter(includes, excludes []string) (*Filter, error) {
	if len(includes) == 0 && len(excludes) == 0 {
		return nil, nil
	}
	for _, p := range append(append([]string{}, includes...), excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
	}
	return &Filter{includes: includes, excludes: excludes}, nil
}

// Match reports whether name should be uploaded.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	if len(f.includes) > 0 && !matchAny(f.includes, name) {
		return false
	}
	return !matchAny(f.excludes, name)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// Patterns were validated in NewFilter.
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
