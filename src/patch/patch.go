package patch

import (
	"go/token"
	"strings"

	"github.com/Protocol-Lattice/agentforge/src/artifact"
	"github.com/Protocol-Lattice/agentforge/src/scaffold"
)

// Apply inserts blocks before the first function following the first type
// declaration and returns the identifiers it inserted. A block whose function
// already exists in text is skipped, so applying the same blocks twice changes
// nothing. A block whose identifier names an existing type, var or const fails
// the whole call with ReasonNameTaken. On error the original text is returned
// unchanged.
func Apply(text string, blocks []scaffold.Block) (string, []string, error) {
	layout, err := Parse(text)
	if err != nil {
		return text, nil, err
	}

	pending := make([]scaffold.Block, 0, len(blocks))
	inserted := make([]string, 0, len(blocks))
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if b.Identifier != "" {
			if seen[b.Identifier] {
				continue
			}
			if tok, ok := layout.Declared[b.Identifier]; ok {
				if tok != token.FUNC {
					return text, nil, &Error{Reason: ReasonNameTaken, Name: b.Identifier}
				}
				continue
			}
			seen[b.Identifier] = true
			inserted = append(inserted, b.Identifier)
		}
		pending = append(pending, b)
	}
	return splice(text, layout.Insert, pending), inserted, nil
}

// Insert places every block at the insertion point without checking what the
// source already declares.
func Insert(text string, blocks []scaffold.Block) (string, error) {
	layout, err := Parse(text)
	if err != nil {
		return text, err
	}
	return splice(text, layout.Insert, blocks), nil
}

// File applies blocks to the stored artifact for identifier and writes the
// result back. It returns the stored text and the identifiers inserted. The
// file is left untouched when Apply fails or changes nothing.
func File(dir *artifact.Dir, identifier string, blocks []scaffold.Block) (string, []string, error) {
	text, err := dir.Read(identifier)
	if err != nil {
		return "", nil, err
	}
	patched, inserted, err := Apply(text, blocks)
	if err != nil {
		return text, nil, err
	}
	if patched == text {
		return text, inserted, nil
	}
	if _, err := dir.Write(identifier, patched); err != nil {
		return text, nil, err
	}
	return patched, inserted, nil
}

func splice(text string, at int, blocks []scaffold.Block) string {
	if len(blocks) == 0 {
		return text
	}
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = strings.TrimRight(b.Text, "\n")
	}

	var sb strings.Builder
	sb.Grow(len(text) + 256*len(blocks))
	sb.WriteString(text[:at])
	sb.WriteString(strings.Join(parts, "\n\n"))
	sb.WriteString("\n\n")
	sb.WriteString(text[at:])
	return sb.String()
}
