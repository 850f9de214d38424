package adk

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/agentforge/src/config"
	"github.com/Protocol-Lattice/agentforge/src/generation"
	"github.com/Protocol-Lattice/agentforge/src/pipeline"
	"github.com/Protocol-Lattice/agentforge/src/store"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Generation.Provider = "dummy"
	cfg.Artifacts.Dir = filepath.Join(t.TempDir(), "agents")
	return cfg
}

func TestKitBuildsPipelineFromConfig(t *testing.T) {
	k, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer k.Close(context.Background())

	res, err := k.Pipeline().Create(context.Background(), pipeline.Request{
		Name:          "Weather Bot",
		StandardTools: []string{"http_request"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !k.Dir().Exists("weather_bot") {
		t.Fatalf("expected weather_bot artifact")
	}
	if res.Record.ID == "" {
		t.Fatalf("expected a stored record id")
	}
	if k.Server().Handler() == nil {
		t.Fatalf("expected an HTTP handler")
	}
	if k.launcher != nil {
		t.Fatalf("no MCP command configured, launcher should be nil")
	}
}

func TestKitUsesSuppliedStore(t *testing.T) {
	st := store.NewMemoryStore()
	k, err := New(context.Background(), testConfig(t), WithStore(st), WithLauncher(nil))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := k.Pipeline().Create(context.Background(), pipeline.Request{Name: "Echo"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := k.Close(context.Background()); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	records, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestKitRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown provider", func(c *config.Config) { c.Generation.Provider = "nope" }, "unknown provider"},
		{"bad capability pattern", func(c *config.Config) { c.MCP.Allow = []string{"[oops"} }, "kit capabilities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLauncherFor(t *testing.T) {
	if l := LauncherFor(config.MCPConfig{}); l != nil {
		t.Fatalf("expected nil launcher without a command, got %#v", l)
	}

	l := LauncherFor(config.MCPConfig{Command: "go-docs-mcp", Args: []string{"--stdio"}, Env: []string{"A=1"}})
	sl, ok := l.(generation.StdioLauncher)
	if !ok {
		t.Fatalf("expected StdioLauncher, got %T", l)
	}
	if sl.Config.Command != "go-docs-mcp" ||
		!reflect.DeepEqual(sl.Config.Args, []string{"--stdio"}) ||
		!reflect.DeepEqual(sl.Config.Env, []string{"A=1"}) {
		t.Fatalf("unexpected stdio config: %#v", sl.Config)
	}
	if sl.Config.Options.ClientInfo.Name != "agentforge" {
		t.Fatalf("unexpected client name %q", sl.Config.Options.ClientInfo.Name)
	}
}
