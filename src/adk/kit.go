// Package adk assembles the generator service from its configuration: the
// model, the capability server launcher, the artifact directory, the store and
// the pipeline that ties them together.
package adk

import (
	"context"
	"fmt"
	"sync"

	"github.com/Protocol-Lattice/agentforge/src/artifact"
	"github.com/Protocol-Lattice/agentforge/src/config"
	"github.com/Protocol-Lattice/agentforge/src/generation"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/mcp"
	"github.com/Protocol-Lattice/agentforge/src/models"
	"github.com/Protocol-Lattice/agentforge/src/pipeline"
	"github.com/Protocol-Lattice/agentforge/src/server"
	"github.com/Protocol-Lattice/agentforge/src/store"
	"github.com/Protocol-Lattice/agentforge/src/tools"
)

// Kit owns the long-lived pieces of the service.
type Kit struct {
	cfg config.Config
	log *logging.Logger

	agent       models.Agent
	launcher    generation.Launcher
	launcherSet bool
	store       store.Store
	ownsStore   bool

	dir      *artifact.Dir
	pipeline *pipeline.Pipeline

	closeOnce sync.Once
	closeErr  error
}

// New applies opts and builds every component not supplied by an option.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Kit, error) {
	k := &Kit{cfg: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(k); err != nil {
			return nil, err
		}
	}
	if k.log == nil {
		k.log = logging.Discard()
	}

	if k.agent == nil {
		agent, err := models.NewLLMProvider(ctx, models.Options{
			Provider:  cfg.Generation.Provider,
			Model:     cfg.Generation.Model,
			MaxTokens: cfg.Generation.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("kit model: %w", err)
		}
		k.agent = agent
	}

	if !k.launcherSet {
		k.launcher = LauncherFor(cfg.MCP)
	}

	if k.store == nil {
		st, err := store.Open(ctx, store.Options{
			Driver:     cfg.Store.Driver,
			URI:        cfg.Store.URI,
			Database:   cfg.Store.Database,
			Collection: cfg.Store.Collection,
			Table:      cfg.Store.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("kit store: %w", err)
		}
		k.store = st
		k.ownsStore = true
	}

	matcher, err := capabilityMatcher(cfg.MCP)
	if err != nil {
		k.closeStore(ctx)
		return nil, fmt.Errorf("kit capabilities: %w", err)
	}

	k.dir = artifact.NewDir(cfg.Artifacts.Dir)
	driver := generation.NewDriver(k.agent, k.launcher, k.dir, k.log, generation.Options{
		Timeout:      cfg.Generation.Timeout,
		MaxTurns:     cfg.Generation.MaxTurns,
		Capabilities: matcher,
	})
	k.pipeline = pipeline.New(driver, k.dir, k.store, k.log, pipeline.WithMaxSessions(cfg.Generation.MaxSessions))

	k.log.Component("kit").Infof("provider=%s model=%s store=%s artifacts=%s capabilities=%t",
		cfg.Generation.Provider, cfg.Generation.Model, cfg.Store.Driver, k.dir.Root(), k.launcher != nil)
	return k, nil
}

func capabilityMatcher(cfg config.MCPConfig) (*tools.Matcher, error) {
	if len(cfg.Allow) == 0 && len(cfg.Deny) == 0 {
		return nil, nil
	}
	return tools.NewMatcher(cfg.Allow, cfg.Deny)
}

// LauncherFor returns a stdio launcher for cfg, or nil when no command is
// configured.
func LauncherFor(cfg config.MCPConfig) generation.Launcher {
	if cfg.Command == "" {
		return nil
	}
	return generation.StdioLauncher{Config: mcp.StdioConfig{
		Command: cfg.Command,
		Args:    append([]string(nil), cfg.Args...),
		Dir:     cfg.Dir,
		Env:     append([]string(nil), cfg.Env...),
		Options: mcp.Options{ClientInfo: mcp.ClientInfo{Name: "agentforge", Version: "1.0.0"}},
	}}
}

func (k *Kit) Pipeline() *pipeline.Pipeline { return k.pipeline }

func (k *Kit) Dir() *artifact.Dir { return k.dir }

func (k *Kit) Logger() *logging.Logger { return k.log }

// Server returns an HTTP front end over the kit's pipeline.
func (k *Kit) Server() *server.Server {
	return server.New(k.pipeline, k.log, server.Options{
		Addr:      k.cfg.Server.Addr,
		StaticDir: k.cfg.Server.StaticDir,
		ReplayTTL: k.cfg.Server.ReplayTTL,
	})
}

// Close releases the store if the kit opened it. It is idempotent.
func (k *Kit) Close(ctx context.Context) error {
	k.closeStore(ctx)
	return k.closeErr
}

func (k *Kit) closeStore(ctx context.Context) {
	k.closeOnce.Do(func() {
		if k.ownsStore && k.store != nil {
			k.closeErr = k.store.Close(ctx)
		}
	})
}
