// Package mcp implements the small Model Context Protocol client used by a
// generation session: initialise, list the server's tools and invoke them.
// Messages are JSON-RPC 2.0 objects, one per line.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ProtocolVersion is the MCP revision sent during initialise.
const ProtocolVersion = "2024-11-05"

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("mcp: client has been closed")

// ClientInfo names the calling application during initialise.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Options control the initialise handshake.
type Options struct {
	ClientInfo ClientInfo
}

// ToolDefinition is one entry of a tools/list reply.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Content is one part of a tool result.
type Content struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CallResult is the reply to tools/call.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text joins the non-empty text parts, one per line.
func (r CallResult) Text() string {
	var segments []string
	for _, part := range r.Content {
		if part.Type != "text" {
			continue
		}
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, "\n")
}

// PrimaryText returns Text, or the first json part indented when the result
// carries no text.
func (r CallResult) PrimaryText() string {
	if txt := r.Text(); txt != "" {
		return txt
	}
	for _, part := range r.Content {
		if part.Type != "json" || len(part.Data) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, part.Data, "", "  "); err != nil {
			return string(part.Data)
		}
		return buf.String()
	}
	return ""
}

// Transport moves raw JSON-RPC messages.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Client speaks the tool subset of MCP over a Transport. Calls are
// serialized: each request waits for its response before the next is sent.
type Client struct {
	transport Transport
	info      ClientInfo

	nextID atomic.Uint64
	mu     sync.Mutex
	closed atomic.Bool
}

// NewClient runs the initialise handshake over transport. The transport is
// closed if the handshake fails.
func NewClient(ctx context.Context, transport Transport, opts Options) (*Client, error) {
	if transport == nil {
		return nil, errors.New("mcp: transport is nil")
	}

	info := opts.ClientInfo
	if strings.TrimSpace(info.Name) == "" {
		info.Name = "agentforge"
	}
	if strings.TrimSpace(info.Version) == "" {
		info.Version = "dev"
	}

	c := &Client{transport: transport, info: info}
	if err := c.initialize(ctx); err != nil {
		transport.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the transport. It is idempotent.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.transport.Close()
}

// ListTools returns every tool the server exposes, following nextCursor.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	var (
		cursor string
		tools  []ToolDefinition
	)
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}
		var page struct {
			Tools      []ToolDefinition `json:"tools"`
			NextCursor string           `json:"nextCursor,omitempty"`
		}
		if err := c.call(ctx, "tools/list", params, &page); err != nil {
			return nil, err
		}
		tools = append(tools, page.Tools...)
		if strings.TrimSpace(page.NextCursor) == "" {
			return tools, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool invokes a named tool. A result flagged isError is returned
// together with an error holding the tool's text.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error) {
	if err := c.ensureOpen(); err != nil {
		return CallResult{}, err
	}
	if strings.TrimSpace(name) == "" {
		return CallResult{}, errors.New("mcp: tool name is required")
	}

	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result CallResult
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return CallResult{}, err
	}
	if result.IsError {
		message := strings.TrimSpace(result.PrimaryText())
		if message == "" {
			message = "tool reported an error"
		}
		return result, fmt.Errorf("mcp: tool %s failed: %s", name, message)
	}
	return result, nil
}

// Shutdown tells the server the session is over. Callers usually only log
// the error.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.call(ctx, "shutdown", map[string]any{}, nil)
}

func (c *Client) ensureOpen() error {
	if c == nil {
		return errors.New("mcp: client is nil")
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      c.info,
		"capabilities":    map[string]any{},
	}
	if err := c.call(ctx, "initialize", params, nil); err != nil {
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	return c.notify(ctx, "notifications/initialized")
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// reply is any message read from the server. Method is set for
// notifications and server-initiated requests.
type reply struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

// answers reports whether the reply carries the given request id. Servers
// may echo it as a string or as a number.
func (r reply) answers(id string) bool {
	if r.Method != "" || len(r.ID) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		return s == id
	}
	return strings.TrimSpace(string(r.ID)) == id
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("mcp: rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) notify(ctx context.Context, method string) error {
	payload, err := json.Marshal(request{JSONRPC: "2.0", Method: method})
	if err != nil {
		return fmt.Errorf("mcp: marshal notification: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Send(ctx, payload)
}

// call sends one request and reads until its reply arrives, skipping
// anything else the server writes in between.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	id := strconv.FormatUint(c.nextID.Add(1), 10)
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal %s: %w", method, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		return err
	}

	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			return err
		}
		var r reply
		if err := json.Unmarshal(msg, &r); err != nil {
			return fmt.Errorf("mcp: decode %s reply: %w", method, err)
		}
		if !r.answers(id) {
			continue
		}
		if r.Error != nil {
			return r.Error
		}
		if out == nil || len(r.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("mcp: decode %s result: %w", method, err)
		}
		return nil
	}
}
