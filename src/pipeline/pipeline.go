// Package pipeline turns an agent request into a stored, patched artifact:
// normalize, generate, synthesize custom tools, merge them and record the
// result.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Protocol-Lattice/agentforge/src/artifact"
	"github.com/Protocol-Lattice/agentforge/src/concurrent"
	"github.com/Protocol-Lattice/agentforge/src/generation"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/patch"
	"github.com/Protocol-Lattice/agentforge/src/scaffold"
	"github.com/Protocol-Lattice/agentforge/src/spec"
	"github.com/Protocol-Lattice/agentforge/src/store"
)

// WarningNotMerged prefixes the warning added when custom tools could not be
// merged into the artifact.
const WarningNotMerged = "custom tools were not merged: "

// Generator produces the base artifact for a spec.
type Generator interface {
	Run(ctx context.Context, s spec.AgentSpec) (generation.Result, error)
}

// Request is a raw agent creation request.
type Request struct {
	Name          string
	Description   string
	StandardTools []string
	CustomTools   []spec.CustomTool
}

// Result is the outcome of Create. Warnings lists degraded steps.
type Result struct {
	Spec     spec.AgentSpec
	Path     string
	Merged   []string
	Record   store.Record
	Warnings []string
}

// StoreError reports that the artifact was produced but its record could not
// be persisted. The artifact is kept.
type StoreError struct {
	Agent string
	Path  string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("agent %q was generated at %s but could not be recorded: %v", e.Agent, e.Path, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// Pipeline runs agent creation requests. Requests for the same identifier
// run one at a time; different identifiers run concurrently, up to the
// session limit.
type Pipeline struct {
	gen      Generator
	dir      *artifact.Dir
	store    store.Store
	log      *logging.Logger
	locks    keyedMutex
	sessions *concurrent.WorkerPool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxSessions bounds how many generation sessions run at once.
func WithMaxSessions(n int) Option {
	return func(p *Pipeline) {
		p.sessions = concurrent.NewWorkerPool(n)
	}
}

func New(gen Generator, dir *artifact.Dir, st store.Store, log *logging.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logging.Discard()
	}
	p := &Pipeline{
		gen:   gen,
		dir:   dir,
		store: st,
		log:   log.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sessions == nil {
		p.sessions = concurrent.NewWorkerPool(0)
	}
	return p
}

// Create generates, patches and records one agent.
//
// Invalid requests fail with an error wrapping spec.ErrInvalidSpec and
// generation failures with *generation.Error; neither leaves a file or a
// record behind. When custom tools cannot be merged the result is still
// returned with a warning. A *StoreError comes back together with the
// partial result.
func (p *Pipeline) Create(ctx context.Context, req Request) (*Result, error) {
	s, err := spec.Normalize(req.Name, req.Description, req.StandardTools, req.CustomTools)
	if err != nil {
		p.log.With("stage", "normalize").Warnf("rejected request for %q: %v", req.Name, err)
		return nil, err
	}
	log := p.log.With("agent", s.Name)

	unlock, err := p.locks.lock(ctx, s.Identifier)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log.Infof("creating agent %s with tools %v", s.Identifier, s.Tools())
	var gres generation.Result
	err = p.sessions.Do(ctx, func() error {
		var runErr error
		gres, runErr = p.gen.Run(ctx, s)
		return runErr
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Spec: s, Path: gres.Path}
	res.Merged, res.Warnings = p.merge(s, log)

	rec, err := p.store.Insert(ctx, store.Record{
		Name:        s.Name,
		Description: s.Description,
		Tools:       s.Tools(),
		Status:      store.StatusActive,
		Artifact:    gres.Path,
	})
	if err != nil {
		serr := &StoreError{Agent: s.Name, Path: gres.Path, Cause: err}
		log.With("stage", "store").Errorf("%v", serr)
		return res, serr
	}
	res.Record = rec

	log.Infof("agent %s stored as %s", s.Identifier, rec.ID)
	return res, nil
}

// merge synthesizes the custom tools and patches them into the artifact.
// Failures are reported as warnings.
func (p *Pipeline) merge(s spec.AgentSpec, log *logging.Logger) ([]string, []string) {
	custom := s.CustomTools()
	if len(custom) == 0 {
		return nil, nil
	}

	blocks, err := scaffold.SynthesizeAll(custom)
	if err != nil {
		log.With("stage", "synthesize").Warnf("custom tools skipped: %v", err)
		return nil, []string{WarningNotMerged + err.Error()}
	}

	_, merged, err := patch.File(p.dir, s.Identifier, blocks)
	if err != nil {
		reason := err.Error()
		var perr *patch.Error
		if errors.As(err, &perr) {
			reason = perr.Detail()
		}
		log.With("stage", "patch").Warnf("custom tools skipped: %s", reason)
		return nil, []string{WarningNotMerged + reason}
	}

	inserted := make(map[string]bool, len(merged))
	for _, id := range merged {
		inserted[id] = true
	}
	var warnings []string
	for _, b := range blocks {
		if !inserted[b.Identifier] {
			log.With("stage", "patch").Warnf("custom tool %s already defined by the model", b.Identifier)
			warnings = append(warnings, WarningNotMerged+b.Identifier+" already defined")
		}
	}
	if len(merged) > 0 {
		log.Infof("merged custom tools %v", merged)
	}
	return merged, warnings
}

// List returns every stored agent record.
func (p *Pipeline) List(ctx context.Context) ([]store.Record, error) {
	return p.store.List(ctx)
}
