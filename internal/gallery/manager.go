package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"kcbxt/internal/config"
	"kcbxt/internal/storage"
)

var (
	// ErrGalleryExists 表示同名图库已存在。
	ErrGalleryExists = errors.New("gallery already exists")
	// ErrGalleryNotFound 表示图库不存在。
	ErrGalleryNotFound = errors.New("gallery not found")
)

// metadata 是 Manager 的落盘文档。每次创建/删除图库都会先重写该文档再返回成功。
type metadata struct {
	ExactKeywords []string `json:"exact_keywords"`
	FuzzyKeywords []string `json:"fuzzy_keywords"`
	Galleries     []Config `json:"galleries"`
}

// Filter 描述按属性检索图库的条件，nil 字段表示不参与匹配。
type Filter struct {
	CreatorID *string
	Capacity  *int
	Compress  *bool
	Duplicate *bool
	Fuzzy     *bool
}

// Manager 聚合一套部署里的全部图库，并维护两份全局关键词表。
// 所有增删都经由 Manager 并遵守「先持久化元数据、后答复成功」的契约。
type Manager struct {
	store    storage.ObjectStorage
	metaPath string
	defaults config.GalleryConfig

	mu            sync.Mutex
	galleries     map[string]*Gallery
	exactKeywords []string
	fuzzyKeywords []string
}

// NewManager 加载（如存在）元数据文档并还原全部图库。
func NewManager(store storage.ObjectStorage, metaPath string, defaults config.GalleryConfig) (*Manager, error) {
	m := &Manager{
		store:     store,
		metaPath:  metaPath,
		defaults:  defaults,
		galleries: map[string]*Gallery{},
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read gallery metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("decode gallery metadata: %w", err)
	}

	m.exactKeywords = meta.ExactKeywords
	m.fuzzyKeywords = meta.FuzzyKeywords
	for _, cfg := range meta.Galleries {
		m.galleries[cfg.Name] = newGallery(cfg, m.store)
	}
	return nil
}

// saveLocked 原子重写元数据文档（临时文件 + rename），持有 m.mu 时调用。
// 写失败时已落盘的旧文档保持原样。
func (m *Manager) saveLocked() error {
	meta := metadata{
		ExactKeywords: m.exactKeywords,
		FuzzyKeywords: m.fuzzyKeywords,
		Galleries:     make([]Config, 0, len(m.galleries)),
	}
	for _, g := range m.galleries {
		meta.Galleries = append(meta.Galleries, g.cfg)
	}
	sort.Slice(meta.Galleries, func(i, j int) bool {
		return meta.Galleries[i].Name < meta.Galleries[j].Name
	})

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode gallery metadata: %w", err)
	}

	dir := filepath.Dir(m.metaPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "galleries.*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp metadata file: %w", err)
	}
	if err := os.Rename(tmpPath, m.metaPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace metadata file: %w", err)
	}
	return nil
}

// Create 以默认配置加创建者信息新建图库，并同步持久化元数据。
func (m *Manager) Create(name, creatorID, creatorName string) (*Gallery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.galleries[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrGalleryExists, name)
	}

	g := newGallery(Config{
		Name:        name,
		CreatorID:   creatorID,
		CreatorName: creatorName,
		Capacity:    m.defaults.Capacity,
		Compress:    m.defaults.Compress,
		Duplicate:   m.defaults.Duplicate,
		Fuzzy:       m.defaults.Fuzzy,
	}, m.store)
	m.galleries[name] = g

	if err := m.saveLocked(); err != nil {
		delete(m.galleries, name)
		return nil, err
	}
	return g, nil
}

// Delete 整体删除图库：清空存储中的图片、注销、持久化元数据。
func (m *Manager) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.galleries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGalleryNotFound, name)
	}
	if err := m.store.DeletePrefix(ctx, g.prefix()); err != nil {
		return err
	}
	delete(m.galleries, name)
	return m.saveLocked()
}

// Get 按名字查找图库。
func (m *Manager) Get(name string) (*Gallery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.galleries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGalleryNotFound, name)
	}
	return g, nil
}

// List 返回全部图库，按名字升序。
func (m *Manager) List() []*Gallery {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Gallery, 0, len(m.galleries))
	for _, g := range m.galleries {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cfg.Name < out[j].cfg.Name })
	return out
}

// ByKeyword 线性扫描，返回关键词表中包含 keyword 的图库。
func (m *Manager) ByKeyword(keyword string) []*Gallery {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Gallery
	for _, g := range m.galleries {
		for _, kw := range g.cfg.Keywords {
			if kw == keyword {
				out = append(out, g)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cfg.Name < out[j].cfg.Name })
	return out
}

// Match 线性扫描，返回满足全部非 nil 条件的图库。
func (m *Manager) Match(f Filter) []*Gallery {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Gallery
	for _, g := range m.galleries {
		if f.CreatorID != nil && g.cfg.CreatorID != *f.CreatorID {
			continue
		}
		if f.Capacity != nil && g.cfg.Capacity != *f.Capacity {
			continue
		}
		if f.Compress != nil && g.cfg.Compress != *f.Compress {
			continue
		}
		if f.Duplicate != nil && g.cfg.Duplicate != *f.Duplicate {
			continue
		}
		if f.Fuzzy != nil && g.cfg.Fuzzy != *f.Fuzzy {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cfg.Name < out[j].cfg.Name })
	return out
}

// ExactKeywords 返回全局精确触发词表。
func (m *Manager) ExactKeywords() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.exactKeywords...)
}

// FuzzyKeywords 返回全局模糊触发词表。
func (m *Manager) FuzzyKeywords() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fuzzyKeywords...)
}
