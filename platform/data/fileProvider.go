package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrRelativePath = errors.New("relative paths are not supported")
	ErrNotAMapping  = errors.New("file must contain a top-level mapping")
)

// FileProvider reads the seed data from a YAML or JSON file each time
// GetData is called.
type FileProvider struct {
	path string
}

// NewFileProvider validates path, which must be absolute. A "file://"
// prefix is accepted.
func NewFileProvider(path string) (*FileProvider, error) {
	path = strings.TrimPrefix(path, "file://")
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %q", ErrRelativePath, path)
	}
	path = filepath.Clean(path)
	if path == "/" {
		return nil, fmt.Errorf("invalid path: %q", path)
	}
	return &FileProvider{path: path}, nil
}

func (p *FileProvider) String() string {
	return fmt.Sprintf("data.FileProvider{Path: %s}", p.path)
}

// GetData parses the file. JSON is accepted since it is valid YAML.
func (p *FileProvider) GetData(_ context.Context) (map[string]any, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.path, err)
	}

	var node any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.path, err)
	}
	switch v := node.(type) {
	case nil:
		return make(map[string]any), nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %s holds %T", ErrNotAMapping, p.path, node)
	}
}
