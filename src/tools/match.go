package tools

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Matcher decides which capability server tools are offered to the model.
// Denied patterns win; with no allowed patterns everything else passes.
type Matcher struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

func NewMatcher(allowed, denied []string) (*Matcher, error) {
	m := &Matcher{}
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		m.allowed = append(m.allowed, g)
	}
	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		m.denied = append(m.denied, g)
	}
	return m, nil
}

// Allows reports whether the tool name passes. A nil Matcher allows all.
func (m *Matcher) Allows(name string) bool {
	if m == nil {
		return true
	}
	for _, g := range m.denied {
		if g.Match(name) {
			return false
		}
	}
	if len(m.allowed) == 0 {
		return true
	}
	for _, g := range m.allowed {
		if g.Match(name) {
			return true
		}
	}
	return false
}
