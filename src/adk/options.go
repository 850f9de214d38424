package adk

import (
	"github.com/Protocol-Lattice/agentforge/src/generation"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/models"
	"github.com/Protocol-Lattice/agentforge/src/store"
)

// Option configures the Kit during construction.
type Option func(*Kit) error

// WithLogger sets the root logger. Components derive their own from it.
func WithLogger(log *logging.Logger) Option {
	return func(k *Kit) error {
		k.log = log
		return nil
	}
}

// WithAgent replaces the model selected by the generation config.
func WithAgent(agent models.Agent) Option {
	return func(k *Kit) error {
		k.agent = agent
		return nil
	}
}

// WithLauncher replaces the capability server launcher built from the MCP
// config. A nil launcher disables capabilities.
func WithLauncher(launcher generation.Launcher) Option {
	return func(k *Kit) error {
		k.launcher = launcher
		k.launcherSet = true
		return nil
	}
}

// WithStore replaces the store selected by the store config. The kit does not
// close a store it did not open.
func WithStore(st store.Store) Option {
	return func(k *Kit) error {
		k.store = st
		return nil
	}
}
