package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAILLM struct {
	Client    *openai.Client
	Model     string
	MaxTokens int
}

func NewOpenAILLM(model string, maxTokens int) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY") // fallback
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	return NewOpenAILLMWithConfig(cfg, model, maxTokens)
}

func NewOpenAILLMWithConfig(cfg openai.ClientConfig, model string, maxTokens int) *OpenAILLM {
	return &OpenAILLM{Client: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: maxTokens}
}

func (o *OpenAILLM) Generate(ctx context.Context, req Request) (Response, error) {
	index := indexTools(req.Tools)
	defs := make([]openai.Tool, 0, len(req.Tools))
	for _, tool := range req.Tools {
		spec := tool.Spec()
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.InputSchema,
			},
		})
	}

	var messages []openai.ChatCompletionMessage
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	var out Response
	for turn := 1; turn <= maxTurns(req.MaxTurns); turn++ {
		creq := openai.ChatCompletionRequest{
			Model:     o.Model,
			Messages:  messages,
			MaxTokens: o.MaxTokens,
		}
		if len(defs) > 0 {
			creq.Tools = defs
		}

		resp, err := o.Client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return out, fmt.Errorf("openai: %w", err)
		}
		if len(resp.Choices) == 0 {
			return out, errors.New("no response from OpenAI")
		}
		out.Turns = turn

		msg := resp.Choices[0].Message
		messages = append(messages, msg)
		if t := strings.TrimSpace(msg.Content); t != "" {
			out.Text = t
		}
		if len(msg.ToolCalls) == 0 {
			return out, nil
		}

		for _, call := range msg.ToolCalls {
			content, isErr := invokeTool(ctx, index, req.SessionID, call.Function.Name, decodeArgs(call.Function.Arguments))
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: call.Function.Name, IsError: isErr})
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, ErrMaxTurns
}

var _ Agent = (*OpenAILLM)(nil)
