package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/agentforge/src/tools"
)

const defaultMaxTurns = 12

// Options selects and tunes a provider.
type Options struct {
	Provider  string
	Model     string
	MaxTokens int
}

// NewLLMProvider returns a concrete Agent.
func NewLLMProvider(ctx context.Context, opts Options) (Agent, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "openai":
		return NewOpenAILLM(opts.Model, opts.MaxTokens), nil
	case "gemini", "google":
		return NewGeminiLLM(ctx, opts.Model, opts.MaxTokens)
	case "ollama":
		return NewOllamaLLM(opts.Model)
	case "anthropic", "claude":
		return NewAnthropicLLM(opts.Model, opts.MaxTokens), nil
	case "dummy":
		return NewDummyLLM(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
}

func maxTurns(n int) int {
	if n <= 0 {
		return defaultMaxTurns
	}
	return n
}

func indexTools(list []tools.Tool) map[string]tools.Tool {
	index := make(map[string]tools.Tool, len(list))
	for _, tool := range list {
		if tool == nil {
			continue
		}
		index[tool.Spec().Name] = tool
	}
	return index
}

// invokeTool runs the named tool and returns the text handed back to the
// model. Tool failures are reported to the model rather than aborting the
// conversation.
func invokeTool(ctx context.Context, index map[string]tools.Tool, sessionID, name string, args map[string]any) (string, bool) {
	tool, ok := index[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", name), true
	}
	resp, err := tool.Invoke(ctx, tools.ToolRequest{SessionID: sessionID, Arguments: args})
	if err != nil {
		return err.Error(), true
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "ok", false
	}
	return resp.Content, false
}

func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// schemaParts splits a JSON object schema into its properties and required
// names.
func schemaParts(schema map[string]any) (map[string]any, []string) {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	var required []string
	switch v := schema["required"].(type) {
	case []string:
		required = append(required, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				required = append(required, s)
			}
		}
	}
	return props, required
}
