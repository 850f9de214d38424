// Package generation runs one generation session: it opens a capability
// session, asks the model for the agent source and commits the result to the
// artifact directory.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Protocol-Lattice/agentforge/src/artifact"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/mcp"
	"github.com/Protocol-Lattice/agentforge/src/models"
	"github.com/Protocol-Lattice/agentforge/src/spec"
	"github.com/Protocol-Lattice/agentforge/src/tools"
)

// State is a step of the session lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateSessionStarting State = "session_starting"
	StateSessionReady    State = "session_ready"
	StatePromptSent      State = "prompt_sent"
	StateResultReceived  State = "result_received"
	StateSessionClosed   State = "session_closed"
	StateFailed          State = "failed"
)

// Stage names the part of a run that failed.
type Stage string

const (
	StagePrompt       Stage = "prompt"
	StageConversation Stage = "conversation"
	StageExtract      Stage = "extract"
	StageCommit       Stage = "commit"
)

// ErrEmptyResult is the cause when the model produced no usable source.
var ErrEmptyResult = errors.New("model produced no source")

// Error is a generation failure.
type Error struct {
	Agent string
	Stage Stage
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation of %q failed at %s: %v", e.Agent, e.Stage, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Options tune a Driver.
type Options struct {
	Timeout      time.Duration
	MaxTurns     int
	CloseTimeout time.Duration
	SystemPrompt string
	// Capabilities filters the capability server's tools. Nil offers all.
	Capabilities *tools.Matcher
}

// Result describes a successful run. States is filled on failure as well.
type Result struct {
	Identifier   string
	Path         string
	Content      string
	Source       Source
	Capabilities []string
	States       []State
	Response     models.Response
}

func (r *Result) record(s State) { r.States = append(r.States, s) }

// Driver runs generation sessions. It is safe for concurrent use; each Run
// opens its own session.
type Driver struct {
	agent    models.Agent
	launcher Launcher
	dir      *artifact.Dir
	opts     Options
	log      *logging.Logger
}

// NewDriver returns a Driver. A nil launcher means no capability server: the
// model only gets the write capability.
func NewDriver(agent models.Agent, launcher Launcher, dir *artifact.Dir, log *logging.Logger, opts Options) *Driver {
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = 5 * time.Second
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = SystemPrompt
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Driver{
		agent:    agent,
		launcher: launcher,
		dir:      dir,
		opts:     opts,
		log:      log.Component("generation"),
	}
}

// Run generates the base artifact for s and writes it to the artifact
// directory. Nothing is written unless the conversation succeeds.
func (d *Driver) Run(ctx context.Context, s spec.AgentSpec) (Result, error) {
	res := Result{Identifier: s.Identifier, States: []State{StateIdle}}
	log := d.log.With("agent", s.Name)

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	content, source, err := d.converse(ctx, s, &res, log)
	if err != nil {
		log.With("stage", string(errStage(err))).Errorf("generation failed: %v", err)
		return res, err
	}

	path, err := d.dir.Write(s.Identifier, content)
	if err != nil {
		gerr := &Error{Agent: s.Name, Stage: StageCommit, Cause: err}
		log.With("stage", string(StageCommit)).Errorf("generation failed: %v", gerr)
		return res, gerr
	}

	res.Path = path
	res.Content = content
	res.Source = source
	log.Infof("artifact written to %s (%s, %d bytes)", path, source, len(content))
	return res, nil
}

func (d *Driver) converse(ctx context.Context, s spec.AgentSpec, res *Result, log *logging.Logger) (content string, source Source, err error) {
	d.transition(res, log, StateSessionStarting)
	session, defs := d.open(ctx, log)
	defer func() {
		d.teardown(session, log)
		if err != nil {
			d.transition(res, log, StateFailed)
			return
		}
		d.transition(res, log, StateSessionClosed)
	}()

	fileName := artifact.FileName(s.Identifier)
	writer := tools.NewFileWriteTool(fileName)

	offered := make([]tools.Tool, 0, len(defs)+1)
	if session != nil {
		for _, tool := range tools.FromMCP(session, defs) {
			name := tool.Spec().Name
			if name == tools.FileWriteName || !d.opts.Capabilities.Allows(name) {
				continue
			}
			offered = append(offered, tool)
			res.Capabilities = append(res.Capabilities, name)
		}
	}
	offered = append(offered, writer)
	d.transition(res, log, StateSessionReady)

	prompt, err := RenderPrompt(PromptData{
		Name:         s.Name,
		Description:  s.Description,
		Tools:        s.Tools(),
		CustomTools:  s.CustomTools(),
		FileName:     fileName,
		Capabilities: res.Capabilities,
	})
	if err != nil {
		return "", "", &Error{Agent: s.Name, Stage: StagePrompt, Cause: err}
	}

	d.transition(res, log, StatePromptSent)
	resp, err := d.agent.Generate(ctx, models.Request{
		SessionID: log.SessionID(),
		System:    d.opts.SystemPrompt,
		Prompt:    prompt,
		Tools:     offered,
		MaxTurns:  d.opts.MaxTurns,
		Brief: models.Brief{
			Name:          s.Name,
			Description:   s.Description,
			Identifier:    s.Identifier,
			FileName:      fileName,
			RequiredTools: s.Tools(),
		},
	})
	res.Response = resp
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return "", "", &Error{Agent: s.Name, Stage: StageConversation, Cause: err}
	}
	d.transition(res, log, StateResultReceived)

	if staged, ok := writer.Staged(); ok && strings.TrimSpace(staged) != "" {
		return staged, SourceFileWrite, nil
	}
	content, source = Extract(resp.Text)
	if content == "" {
		return "", "", &Error{Agent: s.Name, Stage: StageExtract, Cause: ErrEmptyResult}
	}
	log.Warnf("file_write was not used, recovered source from the reply (%s)", source)
	return content, source, nil
}

// open starts the capability session. Any failure leaves the session
// without capabilities; generation goes on regardless.
func (d *Driver) open(ctx context.Context, log *logging.Logger) (Session, []mcp.ToolDefinition) {
	if d.launcher == nil {
		log.Infof("no capability server configured")
		return nil, nil
	}
	session, err := d.launcher.Launch(ctx)
	if err != nil {
		log.Warnf("capability server unavailable, continuing without it: %v", err)
		return nil, nil
	}
	defs, err := session.ListTools(ctx)
	if err != nil {
		log.Warnf("listing capabilities failed, continuing without them: %v", err)
		return session, nil
	}
	log.Infof("capability server offers %d tools", len(defs))
	return session, defs
}

func (d *Driver) teardown(session Session, log *logging.Logger) {
	if session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.CloseTimeout)
	defer cancel()
	if err := session.Shutdown(ctx); err != nil {
		log.Debugf("capability server shutdown: %v", err)
	}
	if err := session.Close(); err != nil {
		log.Warnf("closing capability session: %v", err)
	}
}

func (d *Driver) transition(res *Result, log *logging.Logger, s State) {
	res.record(s)
	log.Infof("session state -> %s", s)
}

func errStage(err error) Stage {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Stage
	}
	return StageConversation
}
