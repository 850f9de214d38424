// Package tools holds the capabilities offered to a model during a generation
// session: tools proxied from an MCP server and the staged file writer.
package tools

import (
	"context"
	"strings"
)

// ToolSpec describes how a tool is presented to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolRequest captures an invocation request for a tool.
type ToolRequest struct {
	SessionID string
	Arguments map[string]any
}

// ToolResponse represents the structured response returned by a tool.
type ToolResponse struct {
	Content  string
	Metadata map[string]string
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

// Names lists tool names in order, or "<none>".
func Names(tools []Tool) string {
	if len(tools) == 0 {
		return "<none>"
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Spec().Name
	}
	return strings.Join(names, ", ")
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
