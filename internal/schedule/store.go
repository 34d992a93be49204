package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound 表示该用户还没有上传过课程表。
var ErrNotFound = errors.New("schedule not found")

// FileStore 以「一个用户一个 JSON 文件」的方式持久化课程表。
// 写入走临时文件 + rename，保证提醒扫描永远不会读到写了一半的文件；
// 同一用户的读写通过 per-user 互斥锁串行化。
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore 创建（必要时建立目录）一个课程表文件仓库。
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create schedule dir %q: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
		locks:  map[string]*sync.Mutex{},
	}, nil
}

func (s *FileStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// Save 整体覆盖指定用户的课程表。
func (s *FileStore) Save(userID string, sched UserSchedule) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	data, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schedule for %q: %w", userID, err)
	}

	tmp, err := os.CreateTemp(s.dir, userID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp schedule file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp schedule file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp schedule file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(userID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace schedule file for %q: %w", userID, err)
	}
	return nil
}

// Load 读取指定用户的课程表；不存在时返回 ErrNotFound。
func (s *FileStore) Load(userID string) (UserSchedule, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	return s.read(s.path(userID))
}

// Delete 移除指定用户的课程表文件；文件不存在视为成功。
func (s *FileStore) Delete(userID string) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.path(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete schedule for %q: %w", userID, err)
	}
	return nil
}

// ForEach 遍历所有已持久化的课程表，供提醒扫描使用。
// 单个文件损坏只记日志并跳过，不影响其他用户。
func (s *FileStore) ForEach(fn func(userID string, sched UserSchedule)) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list schedule dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		userID := strings.TrimSuffix(name, ".json")
		sched, err := s.Load(userID)
		if err != nil {
			s.logger.Error("skip unreadable schedule file",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			continue
		}
		fn(userID, sched)
	}
	return nil
}

func (s *FileStore) read(path string) (UserSchedule, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return UserSchedule{}, ErrNotFound
	}
	if err != nil {
		return UserSchedule{}, fmt.Errorf("read schedule file: %w", err)
	}
	var sched UserSchedule
	if err := json.Unmarshal(data, &sched); err != nil {
		return UserSchedule{}, fmt.Errorf("decode schedule file %q: %w", filepath.Base(path), err)
	}
	return sched, nil
}
