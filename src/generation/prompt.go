package generation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Protocol-Lattice/agentforge/src/spec"
)

// SystemPrompt is the generator persona.
const SystemPrompt = `You are an expert Go engineer who builds AI agents on the go-agent runtime.

For every agent you are asked to create:

Consult the documentation tools you have been given, when any are available, before writing code.
Design the agent around a clear purpose, a focused system prompt and a small set of tools.
Write complete, idiomatic Go: explicit error handling, context.Context on blocking calls, no panics.
Keep the generated file self-contained so it compiles on its own.

Always declare the agent type before its constructor and methods.
Save the finished file with the file_write tool, then reply with a short summary of what you built.`

// PromptData fills the named slots of the generation prompt.
type PromptData struct {
	Name         string
	Description  string
	Tools        []string
	CustomTools  []spec.CustomTool
	FileName     string
	Capabilities []string
}

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"toolList": func(tools []string) string {
		if len(tools) == 0 {
			return "standard tools"
		}
		return strings.Join(tools, ", ")
	},
	"indent": func(text string) string {
		return strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n    ")
	},
}).Parse(`I need you to create a new Go agent with the following specifications:

Agent Name: {{.Name}}
Agent Purpose: {{.Description}}
Required Tools: {{toolList .Tools}}
{{- if .CustomTools}}

Custom Tools Specifications:
{{- range .CustomTools}}
- {{.DisplayName}}: {{indent .Description}}
{{- end}}
{{- end}}
{{- if .Capabilities}}

Documentation tools available to you: {{toolList .Capabilities}}
{{- end}}

Please follow these steps:
1. Generate complete Go source for an agent that fulfills the purpose
2. Declare the agent type first, followed by its constructor and methods
{{- if .CustomTools}}
3. Implement each custom tool above as a top-level function
   func <name>(query string) map[string]any returning "success" and either "result" or "error",
   plus "message"
4. Add proper error handling and logging for the entire agent
5. Save the file with the file_write tool using the path {{printf "%q" .FileName}}
6. Return the complete code in a single ` + "```go" + ` code block
{{- else}}
3. Add proper error handling and logging for the entire agent
4. Save the file with the file_write tool using the path {{printf "%q" .FileName}}
5. Return the complete code in a single ` + "```go" + ` code block
{{- end}}

The code should be well-structured, documented and idiomatic.
`))

// RenderPrompt renders the generation prompt.
func RenderPrompt(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("generation: render prompt: %w", err)
	}
	return buf.String(), nil
}
