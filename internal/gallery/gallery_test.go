package gallery

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"kcbxt/internal/storage"
)

// pngImage 生成指定尺寸的纯色 PNG。
func pngImage(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := imaging.New(width, height, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestGallery(t *testing.T, cfg Config) *Gallery {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	if cfg.Name == "" {
		cfg.Name = "猫猫"
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = 10
	}
	return newGallery(cfg, store)
}

func TestAddImageAssignsSequentialKeys(t *testing.T) {
	g := newTestGallery(t, Config{})
	ctx := context.Background()

	key1, err := g.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{255, 0, 0, 255}), "alice")
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	key2, err := g.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{0, 255, 0, 255}), "alice")
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if key1 != "猫猫/alice_1.png" || key2 != "猫猫/alice_2.png" {
		t.Fatalf("unexpected keys %q, %q", key1, key2)
	}

	info, err := g.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ImageCount != 2 {
		t.Fatalf("image count = %d, want 2", info.ImageCount)
	}
}

func TestAddImageCapacityExceeded(t *testing.T) {
	g := newTestGallery(t, Config{Capacity: 1})
	ctx := context.Background()

	if _, err := g.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{255, 0, 0, 255}), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := g.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{0, 255, 0, 255}), "a")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	info, err := g.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ImageCount != 1 {
		t.Fatalf("image count changed on rejected add: %d", info.ImageCount)
	}
}

func TestAddImageDuplicateDetection(t *testing.T) {
	g := newTestGallery(t, Config{Duplicate: true})
	ctx := context.Background()

	data := pngImage(t, 8, 8, color.NRGBA{12, 34, 56, 255})
	if _, err := g.AddImage(ctx, data, "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := g.AddImage(ctx, data, "b")
	if !errors.Is(err, ErrDuplicateImage) {
		t.Fatalf("expected ErrDuplicateImage, got %v", err)
	}

	// 不同像素内容不算重复。
	if _, err := g.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{99, 99, 99, 255}), "b"); err != nil {
		t.Fatalf("add distinct image: %v", err)
	}
}

func TestAddImageCompressBoundsLongEdge(t *testing.T) {
	g := newTestGallery(t, Config{Compress: true})
	ctx := context.Background()

	key, err := g.AddImage(ctx, pngImage(t, 1024, 256, color.NRGBA{1, 2, 3, 255}), "a")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	img, err := g.GetImage(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		t.Fatalf("stored image %dx%d exceeds max edge %d", b.Dx(), b.Dy(), maxEdge)
	}
	if key != "猫猫/a_1.png" {
		t.Fatalf("compressed image should be stored as png, got key %q", key)
	}
}

func TestAddImageSmallImageNotUpscaled(t *testing.T) {
	g := newTestGallery(t, Config{Compress: true})
	ctx := context.Background()

	if _, err := g.AddImage(ctx, pngImage(t, 30, 20, color.NRGBA{5, 5, 5, 255}), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	img, err := g.GetImage(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Fatalf("small image resized to %dx%d", b.Dx(), b.Dy())
	}
}

func TestDeleteImageByIndex(t *testing.T) {
	g := newTestGallery(t, Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c := color.NRGBA{uint8(i * 40), 0, 0, 255}
		if _, err := g.AddImage(ctx, pngImage(t, 8, 8, c), "a"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	if err := g.DeleteImage(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	info, err := g.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ImageCount != 2 {
		t.Fatalf("image count = %d, want 2", info.ImageCount)
	}

	// 序号越界（0 和 count+1）不改变图库。
	if err := g.DeleteImage(ctx, 0); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("index 0: expected ErrImageNotFound, got %v", err)
	}
	if err := g.DeleteImage(ctx, 3); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("index count+1: expected ErrImageNotFound, got %v", err)
	}
	info, _ = g.Info(ctx)
	if info.ImageCount != 2 {
		t.Fatalf("image count changed on out-of-range delete: %d", info.ImageCount)
	}
}

func TestAddImageAfterDeleteDoesNotReuseKeys(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	g := newGallery(Config{Name: "猫猫", Capacity: 10}, store)
	ctx := context.Background()

	imgA := pngImage(t, 8, 8, color.NRGBA{255, 0, 0, 255})
	imgB := pngImage(t, 8, 8, color.NRGBA{0, 255, 0, 255})
	imgC := pngImage(t, 8, 8, color.NRGBA{0, 0, 255, 255})

	if _, err := g.AddImage(ctx, imgA, "a"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	keyB, err := g.AddImage(ctx, imgB, "a")
	if err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := g.DeleteImage(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	keyC, err := g.AddImage(ctx, imgC, "a")
	if err != nil {
		t.Fatalf("add c: %v", err)
	}
	// 删掉第 1 张后幸存的是 a_2；新图的键必须继续往后排，不能撞上它。
	if keyC == keyB {
		t.Fatalf("new key %q reuses surviving key", keyC)
	}
	if keyC != "猫猫/a_3.png" {
		t.Fatalf("new key = %q, want 猫猫/a_3.png", keyC)
	}

	survivor, err := g.GetImage(ctx, 1)
	if err != nil {
		t.Fatalf("get survivor: %v", err)
	}
	if !bytes.Equal(survivor.Data, imgB) {
		t.Fatal("surviving image was overwritten")
	}

	info, err := g.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ImageCount != 2 {
		t.Fatalf("image count = %d, want 2", info.ImageCount)
	}
	// 清单与存储实况一致：重开一个实例重建清单，数量不变。
	reopened := newGallery(Config{Name: "猫猫", Capacity: 10}, store)
	info2, err := reopened.Info(ctx)
	if err != nil {
		t.Fatalf("reopened info: %v", err)
	}
	if info2.ImageCount != info.ImageCount {
		t.Fatalf("count drifts across restart: live=%d reseeded=%d", info.ImageCount, info2.ImageCount)
	}
}

func TestClearEmptiesGallery(t *testing.T) {
	g := newTestGallery(t, Config{})
	ctx := context.Background()

	if _, err := g.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{1, 1, 1, 255}), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := g.RandomImage(ctx); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound after clear, got %v", err)
	}
}

func TestGetAndRandomImage(t *testing.T) {
	g := newTestGallery(t, Config{})
	ctx := context.Background()

	want := pngImage(t, 8, 8, color.NRGBA{7, 8, 9, 255})
	if _, err := g.AddImage(ctx, want, "a"); err != nil {
		t.Fatalf("add: %v", err)
	}

	img, err := g.GetImage(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(img.Data, want) {
		t.Fatal("stored image content mismatch")
	}

	rnd, err := g.RandomImage(ctx)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if rnd.Key != img.Key {
		t.Fatalf("single-image random picked %q, want %q", rnd.Key, img.Key)
	}

	if _, err := g.GetImage(ctx, 2); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("index 2: expected ErrImageNotFound, got %v", err)
	}
}

func TestManifestRebuiltFromStorage(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	cfg := Config{Name: "猫猫", Capacity: 10}
	ctx := context.Background()

	g1 := newGallery(cfg, store)
	if _, err := g1.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{1, 0, 0, 255}), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := g1.AddImage(ctx, pngImage(t, 8, 8, color.NRGBA{2, 0, 0, 255}), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// 新实例从存储实况重建清单。
	g2 := newGallery(cfg, store)
	info, err := g2.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ImageCount != 2 {
		t.Fatalf("rebuilt manifest count = %d, want 2", info.ImageCount)
	}
}
