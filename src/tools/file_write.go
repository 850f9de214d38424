package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// FileWriteName is the tool name the model uses to persist the artifact.
const FileWriteName = "file_write"

type fileWriteArgs struct {
	Path    string `json:"path" jsonschema:"description=Destination file name"`
	Content string `json:"content" jsonschema:"description=Complete file content"`
}

var fileWriteSchema = MustSchemaFor[fileWriteArgs]()

// FileWriteTool is the write capability offered to the model. Writes are
// staged in memory and only the expected file name is accepted; the session
// driver commits the staged content once the conversation succeeds, so a
// failed session never leaves a file behind.
type FileWriteTool struct {
	expected string

	mu      sync.Mutex
	content string
	writes  int
}

// NewFileWriteTool accepts writes to fileName only (any directory prefix the
// model adds is ignored).
func NewFileWriteTool(fileName string) *FileWriteTool {
	return &FileWriteTool{expected: fileName}
}

func (t *FileWriteTool) Spec() ToolSpec {
	return ToolSpec{
		Name: FileWriteName,
		Description: fmt.Sprintf("Save the complete agent source code. The only accepted path is %q; "+
			"calling it again replaces the previous content.", t.expected),
		InputSchema: fileWriteSchema,
	}
}

func (t *FileWriteTool) Invoke(_ context.Context, req ToolRequest) (ToolResponse, error) {
	path, _ := stringArg(req.Arguments, "path")
	content, ok := stringArg(req.Arguments, "content")
	if !ok {
		return ToolResponse{}, fmt.Errorf("file_write: missing content")
	}
	if strings.TrimSpace(content) == "" {
		return ToolResponse{}, fmt.Errorf("file_write: content is empty")
	}
	base := filepath.Base(filepath.Clean(strings.TrimSpace(path)))
	if base != t.expected {
		return ToolResponse{}, fmt.Errorf("file_write: path %q rejected, write to %q", path, t.expected)
	}

	t.mu.Lock()
	t.content = content
	t.writes++
	t.mu.Unlock()

	return ToolResponse{
		Content:  fmt.Sprintf("Saved %d bytes to %s", len(content), t.expected),
		Metadata: map[string]string{"path": t.expected},
	}, nil
}

// Staged returns the last accepted content.
func (t *FileWriteTool) Staged() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content, t.writes > 0
}
