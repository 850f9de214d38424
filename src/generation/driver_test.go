package generation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/agentforge/src/artifact"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/mcp"
	"github.com/Protocol-Lattice/agentforge/src/models"
	"github.com/Protocol-Lattice/agentforge/src/spec"
	"github.com/Protocol-Lattice/agentforge/src/tools"
)

type agentFunc func(ctx context.Context, req models.Request) (models.Response, error)

func (f agentFunc) Generate(ctx context.Context, req models.Request) (models.Response, error) {
	return f(ctx, req)
}

type fakeSession struct {
	mu        sync.Mutex
	defs      []mcp.ToolDefinition
	listErr   error
	shutdowns int
	closes    int
}

func (s *fakeSession) ListTools(context.Context) ([]mcp.ToolDefinition, error) {
	return s.defs, s.listErr
}

func (s *fakeSession) CallTool(_ context.Context, name string, _ map[string]any) (mcp.CallResult, error) {
	return mcp.CallResult{Content: []mcp.Content{{Type: "text", Text: "docs for " + name}}}, nil
}

func (s *fakeSession) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdowns++
	return errors.New("method not found")
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

type launcherFunc func(ctx context.Context) (Session, error)

func (f launcherFunc) Launch(ctx context.Context) (Session, error) { return f(ctx) }

func weatherSpec(t *testing.T) spec.AgentSpec {
	t.Helper()
	s, err := spec.Normalize("Weather Bot", "Answers weather questions", []string{"http_request"}, nil)
	require.NoError(t, err)
	return s
}

func newDriver(t *testing.T, agent models.Agent, launcher Launcher, opts Options) (*Driver, *artifact.Dir) {
	t.Helper()
	dir := artifact.NewDir(filepath.Join(t.TempDir(), "agents"))
	return NewDriver(agent, launcher, dir, logging.Discard(), opts), dir
}

func TestRunWithDummyWritesArtifact(t *testing.T) {
	driver, dir := newDriver(t, models.NewDummyLLM(), nil, Options{})
	s := weatherSpec(t)

	res, err := driver.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []State{
		StateIdle, StateSessionStarting, StateSessionReady,
		StatePromptSent, StateResultReceived, StateSessionClosed,
	}, res.States)
	assert.Equal(t, SourceFileWrite, res.Source)
	assert.Equal(t, filepath.Join(dir.Root(), "weather_bot.go"), res.Path)

	want, err := models.RenderSkeleton(models.Brief{
		Name:          "Weather Bot",
		Description:   "Answers weather questions",
		Identifier:    "weather_bot",
		FileName:      "weather_bot.go",
		RequiredTools: []string{"http_request"},
	})
	require.NoError(t, err)
	stored, err := dir.Read("weather_bot")
	require.NoError(t, err)
	assert.Equal(t, want, stored)
	assert.Equal(t, want, res.Content)
}

func TestRunOffersCapabilitiesAndClosesSession(t *testing.T) {
	session := &fakeSession{defs: []mcp.ToolDefinition{
		{Name: "quickstart", Description: "Core concepts"},
		{Name: "file_write", Description: "shadowing tool"},
		{Name: "agent_tools"},
	}}
	var offered []string
	var consulted string
	agent := agentFunc(func(ctx context.Context, req models.Request) (models.Response, error) {
		for _, tool := range req.Tools {
			offered = append(offered, tool.Spec().Name)
		}
		out, err := req.Tools[0].Invoke(ctx, tools.ToolRequest{})
		require.NoError(t, err)
		consulted = out.Content
		assert.Contains(t, req.Prompt, "Documentation tools available to you: quickstart, agent_tools")
		return models.NewDummyLLM().Generate(ctx, req)
	})
	driver, _ := newDriver(t, agent, launcherFunc(func(context.Context) (Session, error) {
		return session, nil
	}), Options{})

	res, err := driver.Run(context.Background(), weatherSpec(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"quickstart", "agent_tools"}, res.Capabilities)
	assert.Equal(t, []string{"quickstart", "agent_tools", "file_write"}, offered)
	assert.Equal(t, "docs for quickstart", consulted)
	assert.Equal(t, 1, session.shutdowns)
	assert.Equal(t, 1, session.closes)
}

func TestRunContinuesWhenCapabilitiesUnavailable(t *testing.T) {
	t.Run("launch fails", func(t *testing.T) {
		driver, dir := newDriver(t, models.NewDummyLLM(), launcherFunc(func(context.Context) (Session, error) {
			return nil, errors.New("uvx: not found")
		}), Options{})
		res, err := driver.Run(context.Background(), weatherSpec(t))
		require.NoError(t, err)
		assert.Empty(t, res.Capabilities)
		assert.True(t, dir.Exists("weather_bot"))
	})

	t.Run("list fails", func(t *testing.T) {
		session := &fakeSession{listErr: errors.New("tools/list timed out")}
		driver, dir := newDriver(t, models.NewDummyLLM(), launcherFunc(func(context.Context) (Session, error) {
			return session, nil
		}), Options{})
		res, err := driver.Run(context.Background(), weatherSpec(t))
		require.NoError(t, err)
		assert.Empty(t, res.Capabilities)
		assert.True(t, dir.Exists("weather_bot"))
		assert.Equal(t, 1, session.closes)
	})
}

func TestRunModelFailureWritesNothing(t *testing.T) {
	session := &fakeSession{}
	agent := agentFunc(func(ctx context.Context, req models.Request) (models.Response, error) {
		// A write before the failure must not reach the disk.
		_, err := req.Tools[len(req.Tools)-1].Invoke(ctx, tools.ToolRequest{Arguments: map[string]any{
			"path": "weather_bot.go", "content": "package weather_bot\n",
		}})
		require.NoError(t, err)
		return models.Response{}, errors.New("model unavailable")
	})
	driver, dir := newDriver(t, agent, launcherFunc(func(context.Context) (Session, error) {
		return session, nil
	}), Options{})

	res, err := driver.Run(context.Background(), weatherSpec(t))
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, StageConversation, gerr.Stage)
	assert.Equal(t, "Weather Bot", gerr.Agent)
	assert.EqualError(t, errors.Unwrap(err), "model unavailable")
	assert.Equal(t, StateFailed, res.States[len(res.States)-1])
	assert.NotContains(t, res.States, StateResultReceived)
	assert.False(t, dir.Exists("weather_bot"))
	_, statErr := os.Stat(dir.Root())
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 1, session.closes)
}

func TestRunTimeout(t *testing.T) {
	agent := agentFunc(func(ctx context.Context, req models.Request) (models.Response, error) {
		<-ctx.Done()
		return models.Response{}, errors.New("request aborted")
	})
	driver, dir := newDriver(t, agent, nil, Options{Timeout: 20 * time.Millisecond})

	_, err := driver.Run(context.Background(), weatherSpec(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, dir.Exists("weather_bot"))
}

func TestRunRecoversCodeBlock(t *testing.T) {
	agent := agentFunc(func(context.Context, models.Request) (models.Response, error) {
		return models.Response{Text: "Here it is:\n```go\npackage weather_bot\n\ntype Agent struct{}\n```\nEnjoy."}, nil
	})
	driver, dir := newDriver(t, agent, nil, Options{})

	res, err := driver.Run(context.Background(), weatherSpec(t))
	require.NoError(t, err)
	assert.Equal(t, SourceCodeBlock, res.Source)
	stored, err := dir.Read("weather_bot")
	require.NoError(t, err)
	assert.Equal(t, "package weather_bot\n\ntype Agent struct{}\n", stored)
}

func TestRunEmptyReplyFails(t *testing.T) {
	agent := agentFunc(func(context.Context, models.Request) (models.Response, error) {
		return models.Response{Text: "   "}, nil
	})
	driver, dir := newDriver(t, agent, nil, Options{})

	res, err := driver.Run(context.Background(), weatherSpec(t))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Equal(t, StateFailed, res.States[len(res.States)-1])
	assert.False(t, dir.Exists("weather_bot"))
}

func TestRunLogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	dir := artifact.NewDir(t.TempDir())
	driver := NewDriver(models.NewDummyLLM(), nil, dir, logging.New(&buf, logging.LevelInfo), Options{})

	_, err := driver.Run(context.Background(), weatherSpec(t))
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "[generation] [INFO] session state -> prompt_sent")
	assert.Contains(t, out, `agent="Weather Bot"`)
	assert.True(t, strings.Count(out, "session state ->") == 5)
}

func TestRunFiltersCapabilities(t *testing.T) {
	session := &fakeSession{defs: []mcp.ToolDefinition{
		{Name: "go_doc"},
		{Name: "go_exec"},
		{Name: "search"},
	}}
	var offered []string
	agent := agentFunc(func(ctx context.Context, req models.Request) (models.Response, error) {
		for _, tool := range req.Tools {
			offered = append(offered, tool.Spec().Name)
		}
		return models.NewDummyLLM().Generate(ctx, req)
	})
	matcher, err := tools.NewMatcher([]string{"go_*"}, []string{"go_exec"})
	require.NoError(t, err)
	driver, _ := newDriver(t, agent, launcherFunc(func(context.Context) (Session, error) {
		return session, nil
	}), Options{Capabilities: matcher})

	res, err := driver.Run(context.Background(), weatherSpec(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"go_doc"}, res.Capabilities)
	assert.Equal(t, []string{"go_doc", "file_write"}, offered)
}
