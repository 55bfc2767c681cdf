// Package filters drops components whose name or rendered children match
// user supplied regular expressions.
package filters

import (
	"regexp"
	"strings"
	"sync"

	"duplicalis/internal/models"
)

// Patterns are the raw expressions configured for one run.
type Patterns struct {
	Names  []string
	Usages []string
}

type matchers struct {
	names  []*regexp.Regexp
	usages []*regexp.Regexp
}

// PatternCache memoizes compiled matchers for the lifetime of a run. It is
// keyed by the pattern lists themselves, so a changed configuration gets a
// fresh compilation.
type PatternCache struct {
	mu      sync.Mutex
	entries map[string]*matchers
}

// NewPatternCache creates an empty per-run cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{entries: make(map[string]*matchers)}
}

func (pc *PatternCache) get(p Patterns) *matchers {
	key := strings.Join(p.Names, "\x00") + "\x01" + strings.Join(p.Usages, "\x00")

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if m, ok := pc.entries[key]; ok {
		return m
	}
	m := &matchers{names: CompilePatterns(p.Names), usages: CompilePatterns(p.Usages)}
	pc.entries[key] = m
	return m
}

// Len returns the number of distinct pattern sets compiled so far.
func (pc *PatternCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}

// CompilePatterns compiles each expression, silently dropping empty or
// invalid ones.
func CompilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// ShouldIgnore reports whether c matches a name pattern, or renders or
// references something matching a usage pattern.
func ShouldIgnore(c *models.Component, p Patterns, cache *PatternCache) bool {
	if cache == nil {
		cache = NewPatternCache()
	}
	m := cache.get(p)

	if matchesAny(c.Name, m.names) {
		return true
	}
	for _, token := range c.JSXTags {
		if matchesAny(token, m.usages) {
			return true
		}
	}
	for _, token := range c.ComponentRefs {
		if matchesAny(token, m.usages) {
			return true
		}
	}
	return false
}

// Apply returns the components that are not ignored, in order.
func Apply(components []models.Component, p Patterns, cache *PatternCache) []models.Component {
	if len(p.Names) == 0 && len(p.Usages) == 0 {
		return components
	}
	kept := components[:0:0]
	for i := range components {
		if !ShouldIgnore(&components[i], p, cache) {
			kept = append(kept, components[i])
		}
	}
	return kept
}

func matchesAny(value string, res []*regexp.Regexp) bool {
	if value == "" {
		return false
	}
	for _, re := range res {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
