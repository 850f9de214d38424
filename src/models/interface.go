package models

import (
	"context"
	"errors"

	"github.com/Protocol-Lattice/agentforge/src/tools"
)

// ErrMaxTurns is returned when the model keeps requesting tools after the
// configured number of turns.
var ErrMaxTurns = errors.New("models: turn limit reached")

// Brief carries the structured facts behind a prompt. Remote providers only
// see the rendered prompt; the dummy provider renders its output from it.
type Brief struct {
	Name          string
	Description   string
	Identifier    string
	FileName      string
	RequiredTools []string
}

// Request is a single generation conversation.
type Request struct {
	SessionID string
	System    string
	Prompt    string
	Tools     []tools.Tool
	MaxTurns  int
	Brief     Brief
}

// ToolCall records one tool invocation made during a conversation.
type ToolCall struct {
	Name    string
	IsError bool
}

// Response is the outcome of a conversation. Text holds the model's final
// textual reply.
type Response struct {
	Text      string
	Turns     int
	ToolCalls []ToolCall
}

// Agent runs a conversation, invoking tools on the model's behalf until the
// model stops asking for them.
type Agent interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
