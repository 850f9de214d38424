package models

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM implements Agent using Anthropic's Messages API with tool use.
type AnthropicLLM struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

// NewAnthropicLLM constructs a client. It reads ANTHROPIC_API_KEY from the env.
func NewAnthropicLLM(model string, maxTokens int, opts ...anthropicopt.RequestOption) *AnthropicLLM {
	key := os.Getenv("ANTHROPIC_API_KEY")
	opts = append([]anthropicopt.RequestOption{anthropicopt.WithAPIKey(key)}, opts...)
	cl := anthropic.NewClient(opts...)
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &AnthropicLLM{
		Client:    &cl,
		Model:     model, // e.g. "claude-sonnet-4-20250514"
		MaxTokens: maxTokens,
	}
}

func (a *AnthropicLLM) Generate(ctx context.Context, req Request) (Response, error) {
	index := indexTools(req.Tools)
	toolParams := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
	for _, tool := range req.Tools {
		spec := tool.Spec()
		props, required := schemaParts(spec.InputSchema)
		toolParams = append(toolParams, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		})
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
	}

	var out Response
	for turn := 1; turn <= maxTurns(req.MaxTurns); turn++ {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(a.Model),
			MaxTokens: int64(a.MaxTokens),
			Messages:  messages,
		}
		if strings.TrimSpace(req.System) != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		msg, err := a.Client.Messages.New(ctx, params)
		if err != nil {
			return out, fmt.Errorf("anthropic: %w", err)
		}
		out.Turns = turn
		messages = append(messages, msg.ToParam())

		var (
			text    strings.Builder
			results []anthropic.ContentBlockParamUnion
		)
		for _, block := range msg.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				text.WriteString(variant.Text)
			case anthropic.ToolUseBlock:
				content, isErr := invokeTool(ctx, index, req.SessionID, variant.Name, decodeArgs(variant.JSON.Input.Raw()))
				out.ToolCalls = append(out.ToolCalls, ToolCall{Name: variant.Name, IsError: isErr})
				results = append(results, anthropic.NewToolResultBlock(variant.ID, content, isErr))
			}
		}
		if t := strings.TrimSpace(text.String()); t != "" {
			out.Text = t
		}
		if len(results) == 0 {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		messages = append(messages, anthropic.NewUserMessage(results...))
	}
	return out, ErrMaxTurns
}

var _ Agent = (*AnthropicLLM)(nil)
