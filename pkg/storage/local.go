package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

//Local stores objects as files under a root directory
type Local struct {
	root string
}

//NewLocal creates root if missing
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("NewLocal: Error, got '%v'", err)
	}
	if err := os.MkdirAll(abs, os.ModePerm); err != nil {
		return nil, fmt.Errorf("NewLocal: Error, got '%v'", err)
	}
	return &Local{root: abs}, nil
}

func (l *Local) Name() string {
	return "local"
}

func (l *Local) Put(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	full := filepath.Join(l.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return "", fmt.Errorf("Local.Put: Error, got '%v'", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("Local.Put: Error, got '%v'", err)
	}

	return l.URL(p), nil
}

func (l *Local) URL(objectPath string) string {
	p, _ := cleanPath(objectPath)
	return "file://" + filepath.ToSlash(filepath.Join(l.root, filepath.FromSlash(p)))
}

func (l *Local) Get(ctx context.Context, objectPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(p)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("Local.Get: Error, got '%v'", err)
	}
	return data, nil
}

func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := utils.ListDir(l.root, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
