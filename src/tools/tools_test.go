package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/agentforge/src/mcp"
)

type fakeMCPClient struct {
	responses map[string]mcp.CallResult
	calls     []map[string]any
	err       error
}

func (f *fakeMCPClient) CallTool(ctx context.Context, name string, args map[string]any) (mcp.CallResult, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return mcp.CallResult{}, f.err
	}
	res, ok := f.responses[name]
	if !ok {
		return mcp.CallResult{}, errors.New("unknown tool")
	}
	return res, nil
}

func TestMCPToolInvokeText(t *testing.T) {
	client := &fakeMCPClient{responses: map[string]mcp.CallResult{
		"quickstart": {Content: []mcp.Content{{Type: "text", Text: " getting started "}}},
	}}
	tool := NewMCPTool(client, mcp.ToolDefinition{
		Name:        "quickstart",
		Description: "Runtime quickstart",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"topic":{"type":"string"}}}`),
	})

	spec := tool.Spec()
	assert.Equal(t, "quickstart", spec.Name)
	assert.Contains(t, spec.InputSchema, "properties")

	out, err := tool.Invoke(context.Background(), ToolRequest{Arguments: map[string]any{"topic": "tools"}})
	require.NoError(t, err)
	assert.Equal(t, "getting started", out.Content)
	assert.Equal(t, "quickstart", out.Metadata["mcp_tool"])
	assert.Equal(t, "tools", client.calls[0]["topic"])
}

func TestMCPToolJSONFallbackAndErrors(t *testing.T) {
	client := &fakeMCPClient{responses: map[string]mcp.CallResult{
		"json": {Content: []mcp.Content{{Type: "json", Data: []byte(`{"value":42}`)}}},
	}}
	tool := NewMCPTool(client, mcp.ToolDefinition{Name: "json"}, WithMCPDisplayName("docs_json"))
	assert.Equal(t, "docs_json", tool.Spec().Name)
	assert.Equal(t, "object", tool.Spec().InputSchema["type"])

	out, err := tool.Invoke(context.Background(), ToolRequest{})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"value\": 42\n}", out.Content)

	client.err = errors.New("boom")
	_, err = tool.Invoke(context.Background(), ToolRequest{})
	assert.EqualError(t, err, "boom")

	var nilTool *MCPTool
	_, err = nilTool.Invoke(context.Background(), ToolRequest{})
	assert.Error(t, err)
}

func TestFromMCPSkipsUnnamed(t *testing.T) {
	got := FromMCP(&fakeMCPClient{}, []mcp.ToolDefinition{{Name: "a"}, {Name: " "}, {Name: "b"}})
	assert.Equal(t, "a, b", Names(got))
	assert.Equal(t, "<none>", Names(nil))
}

func TestFileWriteToolStagesContent(t *testing.T) {
	tool := NewFileWriteTool("weather_bot.go")
	_, ok := tool.Staged()
	assert.False(t, ok)

	_, err := tool.Invoke(context.Background(), ToolRequest{Arguments: map[string]any{
		"path":    "agents/weather_bot.go",
		"content": "package main\n",
	}})
	require.NoError(t, err)

	_, err = tool.Invoke(context.Background(), ToolRequest{Arguments: map[string]any{
		"path":    "weather_bot.go",
		"content": "package main\n\nfunc main() {}\n",
	}})
	require.NoError(t, err)

	content, ok := tool.Staged()
	require.True(t, ok)
	assert.Equal(t, "package main\n\nfunc main() {}\n", content)
}

func TestFileWriteToolRejects(t *testing.T) {
	tool := NewFileWriteTool("weather_bot.go")
	tests := []map[string]any{
		{"path": "../../etc/passwd", "content": "x"},
		{"path": "other.go", "content": "package main"},
		{"path": "weather_bot.go", "content": "   "},
		{"path": "weather_bot.go"},
		{"path": "weather_bot.go", "content": 42},
	}
	for _, args := range tests {
		_, err := tool.Invoke(context.Background(), ToolRequest{Arguments: args})
		assert.Error(t, err, "%v", args)
	}
	_, ok := tool.Staged()
	assert.False(t, ok)
}

func TestSchemaFor(t *testing.T) {
	type lookupArgs struct {
		Query string `json:"query" jsonschema:"description=What to look up"`
		Limit int    `json:"limit,omitempty"`
	}
	s, err := SchemaFor[lookupArgs]()
	require.NoError(t, err)
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []any{"query"}, s["required"])
	assert.NotContains(t, s, "$schema")
	assert.NotContains(t, s, "$id")

	props := s["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "What to look up"}, props["query"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
}

func TestFileWriteSchema(t *testing.T) {
	s := NewFileWriteTool("weather_bot.go").Spec().InputSchema
	assert.Equal(t, []any{"path", "content"}, s["required"])
	assert.Contains(t, s["properties"], "content")
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"go_*", "search"}, []string{"go_exec*"})
	require.NoError(t, err)

	tests := []struct {
		name string
		want bool
	}{
		{"go_doc", true},
		{"search", true},
		{"go_exec_snippet", false},
		{"fetch_url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Allows(tt.name), tt.name)
	}

	var none *Matcher
	assert.True(t, none.Allows("anything"))

	open, err := NewMatcher(nil, []string{"shell*"})
	require.NoError(t, err)
	assert.True(t, open.Allows("go_doc"))
	assert.False(t, open.Allows("shell_run"))

	_, err = NewMatcher([]string{"[unclosed"}, nil)
	assert.Error(t, err)
}
