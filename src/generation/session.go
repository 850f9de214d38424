package generation

import (
	"context"

	"github.com/Protocol-Lattice/agentforge/src/mcp"
)

// Session is an open connection to a capability server.
type Session interface {
	ListTools(ctx context.Context) ([]mcp.ToolDefinition, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (mcp.CallResult, error)
	Shutdown(ctx context.Context) error
	Close() error
}

// Launcher opens one session per generation.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// StdioLauncher spawns the capability server as a subprocess.
type StdioLauncher struct {
	Config mcp.StdioConfig
}

func (l StdioLauncher) Launch(ctx context.Context) (Session, error) {
	client, err := mcp.NewStdioClient(ctx, l.Config)
	if err != nil {
		return nil, err
	}
	return client, nil
}
