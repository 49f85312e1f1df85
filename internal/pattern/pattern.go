// Package pattern implements the include/exclude glob filter applied to every
// entry the walker encounters.
//
// Globs follow shell fnmatch rules: '*' matches any run of characters
// including '/', '?' matches one character, and bracket classes ("[abc]",
// "[!abc]") are supported. Include globs are tested against the file's base
// name, exclude globs against its full path, so "*.py" selects Python files at
// any depth while "*/test/*" can prune whole subtrees.
package pattern

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
)

type compiled struct {
	source string
	glob   glob.Glob
}

// Set is an immutable pair of compiled include and exclude globs
type Set struct {
	include []compiled
	exclude []compiled
}

// New compiles the include and exclude globs. Duplicates are dropped.
func New(include, exclude []string) (*Set, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	return &Set{include: inc, exclude: exc}, nil
}

// MustNew is like New but panics on an invalid glob
func MustNew(include, exclude []string) *Set {
	s, err := New(include, exclude)
	if err != nil {
		panic(err)
	}
	return s
}

func compileAll(patterns []string) ([]compiled, error) {
	seen := make(map[string]bool, len(patterns))
	out := make([]compiled, 0, len(patterns))
	for _, p := range patterns {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", domain.ErrInvalidPattern, p, err)
		}
		out = append(out, compiled{source: p, glob: g})
	}
	return out, nil
}

// Matches reports whether a file passes the filter. baseName is checked
// against include globs, fullPath against exclude globs.
func (s *Set) Matches(fullPath, baseName string) bool {
	if len(s.include) > 0 && !anyMatch(s.include, baseName) {
		return false
	}
	return !anyMatch(s.exclude, fullPath)
}

// ExcludesDir reports whether a directory should be pruned. Directories have
// no include stage; either path form matching an exclude glob prunes it.
func (s *Set) ExcludesDir(absPath, relPath string) bool {
	return anyMatch(s.exclude, absPath) || anyMatch(s.exclude, relPath)
}

// Include returns the include globs in sorted order
func (s *Set) Include() []string {
	return sources(s.include)
}

// Exclude returns the exclude globs in sorted order
func (s *Set) Exclude() []string {
	return sources(s.exclude)
}

func anyMatch(globs []compiled, value string) bool {
	for _, c := range globs {
		if c.glob.Match(value) {
			return true
		}
	}
	return false
}

func sources(globs []compiled) []string {
	if len(globs) == 0 {
		return nil
	}
	out := make([]string, len(globs))
	for i, c := range globs {
		out[i] = c.source
	}
	sort.Strings(out)
	return out
}
