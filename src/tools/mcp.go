package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/agentforge/src/mcp"
)

// MCPInvoker defines the subset of the MCP client used by the tool wrapper.
type MCPInvoker interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (mcp.CallResult, error)
}

// MCPTool adapts an MCP server tool to the Tool interface.
type MCPTool struct {
	client     MCPInvoker
	remoteName string
	spec       ToolSpec
}

// MCPToolOption customises the behaviour of the MCP tool wrapper.
type MCPToolOption func(*MCPTool)

// WithMCPDisplayName overrides the name reported to the model. By default the
// remote tool name is used.
func WithMCPDisplayName(name string) MCPToolOption {
	return func(t *MCPTool) {
		if strings.TrimSpace(name) != "" {
			t.spec.Name = name
		}
	}
}

// NewMCPTool constructs a tool wrapper for the provided MCP tool definition.
// A missing or malformed input schema becomes an empty object schema.
func NewMCPTool(client MCPInvoker, def mcp.ToolDefinition, opts ...MCPToolOption) *MCPTool {
	schema := map[string]any{}
	if len(def.InputSchema) > 0 {
		_ = json.Unmarshal(def.InputSchema, &schema)
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}

	tool := &MCPTool{
		client:     client,
		remoteName: def.Name,
		spec: ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(tool)
		}
	}
	return tool
}

// FromMCP wraps every definition.
func FromMCP(client MCPInvoker, defs []mcp.ToolDefinition) []Tool {
	out := make([]Tool, 0, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			continue
		}
		out = append(out, NewMCPTool(client, def))
	}
	return out
}

func (t *MCPTool) Spec() ToolSpec {
	if t == nil {
		return ToolSpec{}
	}
	return t.spec
}

// Invoke calls the remote tool and returns its textual response. JSON payloads
// are used when no text content is present.
func (t *MCPTool) Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error) {
	if t == nil || t.client == nil {
		return ToolResponse{}, fmt.Errorf("mcp tool is not initialised")
	}

	result, err := t.client.CallTool(ctx, t.remoteName, req.Arguments)
	if err != nil {
		return ToolResponse{}, err
	}

	return ToolResponse{
		Content:  strings.TrimSpace(result.PrimaryText()),
		Metadata: map[string]string{"mcp_tool": t.remoteName},
	}, nil
}
