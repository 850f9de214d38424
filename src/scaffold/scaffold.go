// Package scaffold renders placeholder implementations for custom tools.
//
// Every block is a top-level Go function with a fixed calling convention:
//
//	func <identifier>(query string) map[string]any
//
// The returned map always carries "success" and "message", plus "result" on
// success or "error" on failure. The body is a scaffold; the agent author is
// expected to replace it with real logic.
package scaffold

import (
	"bytes"
	"fmt"
	"go/token"
	"strconv"
	"strings"
	"text/template"

	"github.com/Protocol-Lattice/agentforge/src/spec"
)

// Block is the rendered source of one custom tool.
type Block struct {
	Identifier string
	Text       string
}

var blockTemplate = template.Must(template.New("tool").Funcs(template.FuncMap{
	"comment": comment,
	"quote":   strconv.Quote,
}).Parse(toolTemplate))

const toolTemplate = `// {{.Identifier}} implements the {{quote .DisplayName}} tool.
//
{{comment .Description}}
//
// query carries the raw tool input. The result holds "success" and either
// "result" or "error".
func {{.Identifier}}(query string) map[string]any {
	if query == "" {
		return map[string]any{
			"success": false,
			"error":   "query is empty",
			"message": {{quote (printf "Failed to execute %s: query is empty" .DisplayName)}},
		}
	}
	return map[string]any{
		"success": true,
		"result":  "Processed query: " + query,
		"message": {{quote (printf "Successfully executed %s" .DisplayName)}},
	}
}
`

// Synthesize renders the block for one custom tool. The output depends only
// on the tool's name and description.
func Synthesize(tool spec.CustomTool) (Block, error) {
	id := tool.Identifier()
	if id == "" {
		return Block{}, fmt.Errorf("scaffold: custom tool has no name")
	}
	if !token.IsIdentifier(id) {
		return Block{}, fmt.Errorf("scaffold: %q is not a valid function name", id)
	}

	data := struct {
		Identifier  string
		DisplayName string
		Description string
	}{
		Identifier:  id,
		DisplayName: tool.DisplayName,
		Description: tool.Description,
	}

	var buf bytes.Buffer
	if err := blockTemplate.Execute(&buf, data); err != nil {
		return Block{}, fmt.Errorf("scaffold: render %s: %w", id, err)
	}
	return Block{Identifier: id, Text: buf.String()}, nil
}

// SynthesizeAll renders blocks in the order of tools.
func SynthesizeAll(tools []spec.CustomTool) ([]Block, error) {
	blocks := make([]Block, 0, len(tools))
	for _, tool := range tools {
		block, err := Synthesize(tool)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// comment turns free text into // lines. Empty input yields a placeholder so
// the doc comment stays contiguous.
func comment(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return "// No description provided."
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			lines[i] = "//"
			continue
		}
		lines[i] = "// " + line
	}
	return strings.Join(lines, "\n")
}
