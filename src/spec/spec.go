// Package spec turns raw agent requests into canonical AgentSpec values.
package spec

import (
	"errors"
	"fmt"
	"go/token"
	"strings"
)

// ErrInvalidSpec is wrapped by every validation failure returned by Normalize.
var ErrInvalidSpec = errors.New("invalid agent spec")

// CustomTool is a user-declared tool that gets a scaffolded implementation.
type CustomTool struct {
	DisplayName string
	Description string
}

// Identifier is the function name used for the tool's entry point.
func (c CustomTool) Identifier() string {
	return Identifier(c.DisplayName)
}

// AgentSpec is the canonical form of a generation request.
type AgentSpec struct {
	Name        string
	Description string
	Identifier  string

	standardTools []string
	customTools   []CustomTool
}

// StandardTools returns a copy of the deduplicated standard tool names.
func (s AgentSpec) StandardTools() []string {
	return append([]string(nil), s.standardTools...)
}

// CustomTools returns a copy of the custom tools in declaration order.
func (s AgentSpec) CustomTools() []CustomTool {
	return append([]CustomTool(nil), s.customTools...)
}

// Tools returns every tool name, standard ones first.
func (s AgentSpec) Tools() []string {
	out := make([]string, 0, len(s.standardTools)+len(s.customTools))
	out = append(out, s.standardTools...)
	for _, ct := range s.customTools {
		out = append(out, ct.DisplayName)
	}
	return out
}

// FileName is the artifact file name for the given extension, e.g. ".go".
func (s AgentSpec) FileName(ext string) string {
	return s.Identifier + ext
}

// Identifier lowercases name and replaces every run of characters outside
// [a-z0-9_] with a single underscore. Underscores at either end are dropped,
// since the go tool ignores files whose name starts with one. The result is a
// valid Go identifier: a leading digit gets an "n" prefix and a Go keyword an
// underscore suffix. Identifier returns "" when name holds no letter or digit.
func Identifier(name string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(name) {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			gap = true
			continue
		}
		if gap && b.Len() > 0 && r != '_' && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
		gap = false
		b.WriteRune(r)
	}

	id := strings.Trim(b.String(), "_")
	switch {
	case id == "":
	case id[0] >= '0' && id[0] <= '9':
		id = "n" + id
	case token.IsKeyword(id):
		id += "_"
	}
	return id
}

// Normalize validates the raw request and builds an AgentSpec.
//
// Tool names are deduplicated case-sensitively in first-seen order across the
// standard tools and then the custom tools; a later duplicate is dropped. Two
// custom tools that survive deduplication but share an identifier are
// rejected, since both would produce the same entry point.
func Normalize(name, description string, standardTools []string, customTools []CustomTool) (AgentSpec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return AgentSpec{}, fmt.Errorf("%w: agent name is required", ErrInvalidSpec)
	}
	id := Identifier(name)
	if id == "" {
		return AgentSpec{}, fmt.Errorf("%w: agent name %q has no letters or digits to name a file", ErrInvalidSpec, name)
	}

	seen := make(map[string]struct{}, len(standardTools)+len(customTools))
	std := make([]string, 0, len(standardTools))
	for _, raw := range standardTools {
		tool := strings.TrimSpace(raw)
		if tool == "" {
			continue
		}
		if _, dup := seen[tool]; dup {
			continue
		}
		seen[tool] = struct{}{}
		std = append(std, tool)
	}

	owners := make(map[string]string, len(customTools))
	custom := make([]CustomTool, 0, len(customTools))
	for i, raw := range customTools {
		display := strings.TrimSpace(raw.DisplayName)
		if display == "" {
			return AgentSpec{}, fmt.Errorf("%w: custom tool %d has no name", ErrInvalidSpec, i)
		}
		if _, dup := seen[display]; dup {
			continue
		}
		seen[display] = struct{}{}

		ct := CustomTool{DisplayName: display, Description: strings.TrimSpace(raw.Description)}
		toolID := ct.Identifier()
		if toolID == "" {
			return AgentSpec{}, fmt.Errorf("%w: custom tool %q has no letters or digits to name a function", ErrInvalidSpec, display)
		}
		if other, clash := owners[toolID]; clash {
			return AgentSpec{}, fmt.Errorf("%w: custom tools %q and %q both map to %q", ErrInvalidSpec, other, display, toolID)
		}
		owners[toolID] = display
		custom = append(custom, ct)
	}

	return AgentSpec{
		Name:          name,
		Description:   strings.TrimSpace(description),
		Identifier:    id,
		standardTools: std,
		customTools:   custom,
	}, nil
}
