package helpers

import (
	"strings"

	"github.com/Protocol-Lattice/agentforge/src/spec"
)

// ParseCSVList splits a comma separated list, dropping blank entries.
func ParseCSVList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseCustomTools reads "name=description" entries separated by semicolons.
// An entry without "=" becomes a tool with an empty description.
func ParseCustomTools(raw string) []spec.CustomTool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []spec.CustomTool
	for _, entry := range strings.Split(raw, ";") {
		name, desc, _ := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, spec.CustomTool{DisplayName: name, Description: strings.TrimSpace(desc)})
	}
	return out
}
