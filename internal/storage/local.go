package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Local 把对象存储映射到本地目录，键的斜杠层级即子目录层级。
type Local struct {
	root string
}

// NewLocal 创建（必要时建立根目录）本地后端。
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	return &Local{root: root}, nil
}

func (l *Local) filePath(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+key)))
}

// Put 写入对象，必要时创建父目录。contentType 在本地后端中无意义。
func (l *Local) Put(_ context.Context, key string, data []byte, _ string) error {
	target := l.filePath(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write object %q: %w", key, err)
	}
	return nil
}

// Get 读取对象内容。
func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.filePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// Delete 删除对象；对象不存在视为成功（幂等）。
func (l *Local) Delete(_ context.Context, key string) error {
	if err := os.Remove(l.filePath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// List 返回指定前缀下所有对象键，按键名升序。
func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	dir := l.filePath(prefix)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
	}

	keyPrefix := strings.TrimSuffix(prefix, "/")
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		keys = append(keys, path.Join(keyPrefix, entry.Name()))
	}
	sort.Strings(keys)
	return keys, nil
}

// DeletePrefix 删除前缀下全部对象及其目录。
func (l *Local) DeletePrefix(_ context.Context, prefix string) error {
	dir := l.filePath(prefix)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove objects under %q: %w", prefix, err)
	}
	return nil
}
