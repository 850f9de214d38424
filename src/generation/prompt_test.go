package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/agentforge/src/spec"
)

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt(PromptData{
		Name:        "Echo Agent",
		Description: "Repeats things",
		Tools:       []string{"calculator", "Echo Tool"},
		CustomTools: []spec.CustomTool{{DisplayName: "Echo Tool", Description: "echoes input\nverbatim"}},
		FileName:    "echo_agent.go",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Agent Name: Echo Agent\n")
	assert.Contains(t, out, "Agent Purpose: Repeats things\n")
	assert.Contains(t, out, "Required Tools: calculator, Echo Tool\n")
	assert.Contains(t, out, "Custom Tools Specifications:\n- Echo Tool: echoes input\n    verbatim\n")
	assert.Contains(t, out, "3. Implement each custom tool above as a top-level function\n")
	assert.Contains(t, out, `5. Save the file with the file_write tool using the path "echo_agent.go"`)
	assert.NotContains(t, out, "Documentation tools")
}

func TestRenderPromptWithoutTools(t *testing.T) {
	out, err := RenderPrompt(PromptData{Name: "Plain", Description: "Does little", FileName: "plain.go"})
	require.NoError(t, err)
	assert.Contains(t, out, "Required Tools: standard tools\n")
	assert.NotContains(t, out, "Custom Tools Specifications")
	assert.NotContains(t, out, "custom tool")
	assert.Contains(t, out, "methods\n3. Add proper error handling and logging for the entire agent\n")
	assert.Contains(t, out, "5. Return the complete code in a single ```go code block\n\nThe code")
	assert.True(t, strings.HasPrefix(out, "I need you to create a new Go agent"))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		want   string
		source Source
	}{
		{"go fence", "text\n```go\npackage a\n```\n```\nother\n```", "package a\n", SourceCodeBlock},
		{"go fence preferred", "```text\nnotes\n```\n```go\npackage b\n```", "package b\n", SourceCodeBlock},
		{"any fence", "```\npackage c\n```", "package c\n", SourceCodeBlock},
		{"golang fence", "```golang\npackage d\n```", "package d\n", SourceCodeBlock},
		{"empty fence falls back", "```go\n\n```", "```go\n\n```\n", SourceReply},
		{"bare reply", "  package e\n", "package e\n", SourceReply},
		{"nothing", " \n ", "", SourceReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source := Extract(tt.reply)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.source, source)
		})
	}
}
