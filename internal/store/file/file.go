// Package file implements store.KV as one file per key inside a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vovakirdan/grammarchat-server/internal/store"
)

const fileExt = ".json"

// KV keeps each key in BaseDir/<key>.json.
type KV struct {
	BaseDir string
}

// New creates the directory if needed and returns a KV rooted at it.
func New(baseDir string) (*KV, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &KV{BaseDir: baseDir}, nil
}

// Get reads the file for key.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	path, err := k.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Put writes value to a temp file and renames it over the key's file,
// so readers never observe a partially written log.
func (k *KV) Put(_ context.Context, key string, value []byte) error {
	path, err := k.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(k.BaseDir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Delete removes the key's file.
func (k *KV) Delete(_ context.Context, key string) error {
	path, err := k.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Close is a no-op.
func (k *KV) Close() error {
	return nil
}

func (k *KV) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(k.BaseDir, key+fileExt), nil
}
