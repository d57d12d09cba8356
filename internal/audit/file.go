package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore writes each artifact as indented JSON to
// <root>/<area>/<kind>_<uuid>.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	if root == "" {
		root = "."
	}
	return &FileStore{root: root}
}

func (s *FileStore) Save(ctx context.Context, kind Kind, v interface{}) (path string, err error) {
	defer func() { observe(kind, err) }()

	if err := checkKind(kind); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}

	dir := filepath.Join(s.root, kind.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit dir %s: %w", dir, err)
	}

	path = filepath.Join(dir, fmt.Sprintf("%s_%s.json", kind, uuid.NewString()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
