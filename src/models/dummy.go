package models

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Protocol-Lattice/agentforge/src/tools"
)

var skeletonTemplate = template.Must(template.New("skeleton").Funcs(template.FuncMap{
	"comment": func(text string) string {
		text = strings.TrimSpace(text)
		if text == "" {
			return "//"
		}
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if line = strings.TrimSpace(line); line == "" {
				lines[i] = "//"
			} else {
				lines[i] = "// " + line
			}
		}
		return strings.Join(lines, "\n")
	},
	"quote": strconv.Quote,
}).Parse(`// Package {{.Identifier}} implements the {{quote .Name}} agent.
//
{{comment .Description}}
package {{.Identifier}}

import (
	"context"
	"fmt"
	"strings"
)

// Tools lists the capabilities the agent was generated with.
var Tools = []string{ {{- range $i, $t := .RequiredTools}}{{if $i}}, {{end}}{{quote $t}}{{end -}} }

// Agent answers queries for the {{quote .Name}} agent.
type Agent struct {
	Name  string
	Tools []string
}

// New returns a ready agent.
func New() *Agent {
	return &Agent{Name: {{quote .Name}}, Tools: append([]string(nil), Tools...)}
}

// Run handles a single query.
func (a *Agent) Run(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%s: empty query", a.Name)
	}
	return fmt.Sprintf("%s handled %q using [%s]", a.Name, query, strings.Join(a.Tools, ", ")), nil
}
`))

// DummyLLM is an offline provider. It renders a fixed agent skeleton from the
// request brief and saves it through file_write when that tool is offered,
// otherwise it replies with the source in a fenced block.
type DummyLLM struct{}

func NewDummyLLM() *DummyLLM {
	return &DummyLLM{}
}

func (d *DummyLLM) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	source, err := RenderSkeleton(req.Brief)
	if err != nil {
		return Response{}, err
	}

	index := indexTools(req.Tools)
	if _, ok := index[tools.FileWriteName]; !ok {
		return Response{Text: "```go\n" + source + "```", Turns: 1}, nil
	}

	content, isErr := invokeTool(ctx, index, req.SessionID, tools.FileWriteName, map[string]any{
		"path":    req.Brief.FileName,
		"content": source,
	})
	out := Response{
		Turns:     2,
		ToolCalls: []ToolCall{{Name: tools.FileWriteName, IsError: isErr}},
	}
	if isErr {
		return out, fmt.Errorf("dummy: file_write failed: %s", content)
	}
	out.Text = fmt.Sprintf("Created %s.", req.Brief.FileName)
	return out, nil
}

// RenderSkeleton renders the agent source the dummy provider produces.
func RenderSkeleton(b Brief) (string, error) {
	if strings.TrimSpace(b.Identifier) == "" {
		return "", fmt.Errorf("dummy: brief has no identifier")
	}
	var buf bytes.Buffer
	if err := skeletonTemplate.Execute(&buf, b); err != nil {
		return "", fmt.Errorf("dummy: render skeleton: %w", err)
	}
	return buf.String(), nil
}

var _ Agent = (*DummyLLM)(nil)
