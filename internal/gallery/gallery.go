// Package gallery 实现按名字组织、容量受限的图片收藏集，
// 以及聚合全部收藏集并持久化元数据的 Manager。
package gallery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"strconv"
	"strings"
	"sync"

	"kcbxt/internal/storage"
)

var (
	// ErrCapacityExceeded 表示图库已满，新增图片被拒绝。
	ErrCapacityExceeded = errors.New("gallery capacity exceeded")
	// ErrDuplicateImage 表示开启查重后命中了已有图片，新增被跳过。
	ErrDuplicateImage = errors.New("duplicate image")
	// ErrImageNotFound 表示按序号找不到图片（或图库为空）。
	ErrImageNotFound = errors.New("image not found")
)

// Config 是单个图库的持久化配置，字段与元数据文档一一对应。
// 图片数量不落盘，始终从存储实况重新计算。
type Config struct {
	Name        string   `json:"name"`
	CreatorID   string   `json:"creator_id"`
	CreatorName string   `json:"creator_name"`
	Capacity    int      `json:"capacity"`
	Compress    bool     `json:"compress"`
	Duplicate   bool     `json:"duplicate"`
	Fuzzy       bool     `json:"fuzzy"`
	Keywords    []string `json:"keywords"`
}

// Info 是 Config 加上实时图片数量的快照。
type Info struct {
	Config
	ImageCount int `json:"image_count"`
}

// Gallery 表示一个图库。图片的位置索引（1 起）基于显式顺序清单，
// 清单在首次使用时从存储按键名升序重建，之后随增删同步维护。
type Gallery struct {
	cfg   Config
	store storage.ObjectStorage

	mu       sync.Mutex
	manifest []string
	loaded   bool
}

// Image 是取图操作的结果。
type Image struct {
	Key  string
	Data []byte
}

func newGallery(cfg Config, store storage.ObjectStorage) *Gallery {
	return &Gallery{cfg: cfg, store: store}
}

// Name 返回图库名。
func (g *Gallery) Name() string { return g.cfg.Name }

// Keywords 返回图库关键词。
func (g *Gallery) Keywords() []string { return g.cfg.Keywords }

func (g *Gallery) prefix() string { return g.cfg.Name + "/" }

// ensureManifest 懒加载顺序清单，持有 g.mu 时调用。
func (g *Gallery) ensureManifest(ctx context.Context) error {
	if g.loaded {
		return nil
	}
	keys, err := g.store.List(ctx, g.prefix())
	if err != nil {
		return fmt.Errorf("load manifest for %q: %w", g.cfg.Name, err)
	}
	g.manifest = keys
	g.loaded = true
	return nil
}

// AddImage 向图库添加一张图片，返回存储键。
// 依次执行：容量检查、（可选）逐像素查重、（可选）压缩重编码、落盘。
func (g *Gallery) AddImage(ctx context.Context, data []byte, label string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureManifest(ctx); err != nil {
		return "", err
	}
	if len(g.manifest) >= g.cfg.Capacity {
		return "", fmt.Errorf("%w: %s is at %d", ErrCapacityExceeded, g.cfg.Name, g.cfg.Capacity)
	}

	if g.cfg.Duplicate {
		for _, key := range g.manifest {
			stored, err := g.store.Get(ctx, key)
			if err != nil {
				continue
			}
			if sameImage(data, stored) {
				return "", fmt.Errorf("%w: matches %s", ErrDuplicateImage, key)
			}
		}
	}

	ext := imageExt(data)
	if g.cfg.Compress {
		compressed, err := compressImage(data)
		if err != nil {
			return "", err
		}
		data = compressed
		ext = "png"
	}

	key := path.Join(g.cfg.Name, fmt.Sprintf("%s_%d.%s", label, g.nextSeq(), ext))
	if err := g.store.Put(ctx, key, data, "image/"+ext); err != nil {
		return "", err
	}
	g.manifest = append(g.manifest, key)
	return key, nil
}

// nextSeq 返回下一个图片序号。以清单中最大的数字后缀为准而不是清单长度：
// 删图之后两者会分叉，按长度生成会撞上幸存对象的键并把它覆盖掉。
// 持有 g.mu 时调用。
func (g *Gallery) nextSeq() int {
	max := 0
	for _, key := range g.manifest {
		base := path.Base(key)
		base = strings.TrimSuffix(base, path.Ext(base))
		i := strings.LastIndex(base, "_")
		if i < 0 {
			continue
		}
		if n, err := strconv.Atoi(base[i+1:]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// DeleteImage 删除序号对应的图片（1 起）；序号越界返回 ErrImageNotFound。
func (g *Gallery) DeleteImage(ctx context.Context, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureManifest(ctx); err != nil {
		return err
	}
	if index < 1 || index > len(g.manifest) {
		return fmt.Errorf("%w: index %d of %d", ErrImageNotFound, index, len(g.manifest))
	}
	key := g.manifest[index-1]
	if err := g.store.Delete(ctx, key); err != nil {
		return err
	}
	g.manifest = append(g.manifest[:index-1], g.manifest[index:]...)
	return nil
}

// Clear 清空图库中的全部图片。
func (g *Gallery) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureManifest(ctx); err != nil {
		return err
	}
	if err := g.store.DeletePrefix(ctx, g.prefix()); err != nil {
		return err
	}
	g.manifest = nil
	return nil
}

// GetImage 返回序号对应的图片（1 起）；序号越界或图库为空返回 ErrImageNotFound。
func (g *Gallery) GetImage(ctx context.Context, index int) (Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureManifest(ctx); err != nil {
		return Image{}, err
	}
	if index < 1 || index > len(g.manifest) {
		return Image{}, fmt.Errorf("%w: index %d of %d", ErrImageNotFound, index, len(g.manifest))
	}
	return g.fetch(ctx, g.manifest[index-1])
}

// RandomImage 在图库内均匀随机取一张图片；图库为空返回 ErrImageNotFound。
func (g *Gallery) RandomImage(ctx context.Context) (Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureManifest(ctx); err != nil {
		return Image{}, err
	}
	if len(g.manifest) == 0 {
		return Image{}, fmt.Errorf("%w: gallery %s is empty", ErrImageNotFound, g.cfg.Name)
	}
	return g.fetch(ctx, g.manifest[rand.Intn(len(g.manifest))])
}

func (g *Gallery) fetch(ctx context.Context, key string) (Image, error) {
	data, err := g.store.Get(ctx, key)
	if err != nil {
		return Image{}, err
	}
	return Image{Key: key, Data: data}, nil
}

// Info 返回配置快照与实时图片数量。
func (g *Gallery) Info(ctx context.Context) (Info, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureManifest(ctx); err != nil {
		return Info{}, err
	}
	return Info{Config: g.cfg, ImageCount: len(g.manifest)}, nil
}
