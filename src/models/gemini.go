package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client    *genai.Client
	Model     string
	MaxTokens int
}

func NewGeminiLLM(ctx context.Context, model string, maxTokens int) (*GeminiLLM, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model, MaxTokens: maxTokens}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, req Request) (Response, error) {
	model := g.Client.GenerativeModel(g.Model)
	if g.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.MaxTokens))
	}
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if decls := functionDeclarations(req); len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	index := indexTools(req.Tools)
	session := model.StartChat()
	parts := []genai.Part{genai.Text(req.Prompt)}

	var out Response
	for turn := 1; turn <= maxTurns(req.MaxTurns); turn++ {
		resp, err := session.SendMessage(ctx, parts...)
		if err != nil {
			return out, fmt.Errorf("gemini generate: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return out, errors.New("gemini: empty response")
		}
		out.Turns = turn

		var text strings.Builder
		parts = nil
		for _, part := range resp.Candidates[0].Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				text.WriteString(string(p))
			case genai.FunctionCall:
				content, isErr := invokeTool(ctx, index, req.SessionID, p.Name, p.Args)
				out.ToolCalls = append(out.ToolCalls, ToolCall{Name: p.Name, IsError: isErr})
				parts = append(parts, genai.FunctionResponse{
					Name:     p.Name,
					Response: map[string]any{"content": content, "is_error": isErr},
				})
			}
		}
		if t := strings.TrimSpace(text.String()); t != "" {
			out.Text = t
		}
		if len(parts) == 0 {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, ErrMaxTurns
}

func functionDeclarations(req Request) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
	for _, tool := range req.Tools {
		spec := tool.Spec()
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toGenaiSchema(spec.InputSchema),
		})
	}
	return decls
}

// toGenaiSchema converts a JSON schema object into Gemini's schema subset.
// Unknown types map to strings.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	out := &genai.Schema{}
	out.Description, _ = schema["description"].(string)

	typ, _ := schema["type"].(string)
	switch typ {
	case "object", "":
		out.Type = genai.TypeObject
		props, required := schemaParts(schema)
		if len(props) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(props))
			for name, raw := range props {
				child, _ := raw.(map[string]any)
				out.Properties[name] = toGenaiSchema(child)
			}
		}
		out.Required = required
	case "array":
		out.Type = genai.TypeArray
		items, _ := schema["items"].(map[string]any)
		if items == nil {
			items = map[string]any{"type": "string"}
		}
		out.Items = toGenaiSchema(items)
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}

	if values, ok := schema["enum"].([]any); ok {
		for _, v := range values {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	return out
}

var _ Agent = (*GeminiLLM)(nil)
