package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

// OllamaLLM is a text-only provider: tools are not offered to the model, so
// the artifact is recovered from the reply itself.
type OllamaLLM struct {
	Client *ollama.Client
	Model  string
}

func NewOllamaLLM(model string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 5 * time.Minute,
	}

	return &OllamaLLM{
		Client: ollama.NewClient(u, httpClient),
		Model:  model,
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, req Request) (Response, error) {
	var text strings.Builder

	greq := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: req.Prompt,
		System: req.System,
	}

	if err := o.Client.Generate(ctx, greq, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	}); err != nil {
		return Response{}, fmt.Errorf("ollama: %w", err)
	}

	return Response{Text: strings.TrimSpace(text.String()), Turns: 1}, nil
}

var _ Agent = (*OllamaLLM)(nil)
