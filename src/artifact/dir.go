// Package artifact manages the directory generated agent sources live in.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the extension of generated artifacts.
const Ext = ".go"

// Dir is an artifact directory. It is created on first write.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: filepath.Clean(root)}
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// FileName returns the artifact file name for an identifier.
func FileName(identifier string) string { return identifier + Ext }

// Path returns the artifact path for an identifier.
func (d *Dir) Path(identifier string) (string, error) {
	if err := checkIdentifier(identifier); err != nil {
		return "", err
	}
	return filepath.Join(d.root, FileName(identifier)), nil
}

// Exists reports whether the artifact for identifier is present.
func (d *Dir) Exists(identifier string) bool {
	path, err := d.Path(identifier)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Read returns the artifact content.
func (d *Dir) Read(identifier string) (string, error) {
	path, err := d.Path(identifier)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("artifact: read %s: %w", path, err)
	}
	return string(data), nil
}

// Write replaces the artifact content. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (d *Dir) Write(identifier, content string) (string, error) {
	path, err := d.Path(identifier)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.root, "."+identifier+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("artifact: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("artifact: chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("artifact: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("artifact: rename %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the artifact. A missing artifact is not an error.
func (d *Dir) Remove(identifier string) error {
	path, err := d.Path(identifier)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact: remove %s: %w", path, err)
	}
	return nil
}

func checkIdentifier(identifier string) error {
	if identifier == "" || strings.ContainsAny(identifier, `/\`) || identifier == "." || identifier == ".." {
		return fmt.Errorf("artifact: invalid identifier %q", identifier)
	}
	return nil
}
