package api

import (
	"bytes"
	"image/color"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"kcbxt/internal/config"
	"kcbxt/internal/errcode"
	"kcbxt/internal/fetch"
	"kcbxt/internal/gallery"
	"kcbxt/internal/ocr"
	"kcbxt/internal/schedule"
	"kcbxt/internal/storage"
)

func newGalleryTestRouter(t *testing.T, defaults config.GalleryConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	if defaults.Capacity == 0 {
		defaults.Capacity = 200
	}
	manager, err := gallery.NewManager(store, filepath.Join(dir, "galleries.json"), defaults)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	scheduleStore, err := schedule.NewFileStore(filepath.Join(dir, "schedules"), slog.Default())
	if err != nil {
		t.Fatalf("new schedule store: %v", err)
	}
	scheduleHandler := NewScheduleHandler(scheduleStore, fetch.NewFetcher(), ocr.NewClient("", ""), slog.Default(), "")
	galleryHandler := NewGalleryHandler(manager, slog.Default())

	router := gin.New()
	RegisterRoutes(router, scheduleHandler, galleryHandler, testSecret)
	return router
}

func createGallery(t *testing.T, router *gin.Engine, name string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/galleries", gin.H{
		"name":         name,
		"creator_id":   "10001",
		"creator_name": "小明",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create gallery: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func testPNG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := imaging.New(width, height, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func postImage(t *testing.T, router *gin.Engine, name, label string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "image.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	if label != "" {
		mw.WriteField("label", label)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/galleries/"+name+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Internal-Secret", testSecret)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGalleryCreateAndDuplicate(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})

	createGallery(t, router, "猫猫")

	w := doJSON(t, router, http.MethodPost, "/v1/galleries", gin.H{"name": "猫猫"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if int(body["code"].(float64)) != errcode.GalleryExists {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestGalleryAddAndGetImage(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})
	createGallery(t, router, "猫猫")

	w := postImage(t, router, "猫猫", "alice", testPNG(t, 8, 8, color.NRGBA{255, 0, 0, 255}))
	if w.Code != http.StatusCreated {
		t.Fatalf("add image: status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["key"] != "猫猫/alice_1.png" {
		t.Fatalf("key = %v", body["key"])
	}

	get := doJSON(t, router, http.MethodGet, "/v1/galleries/猫猫/images/1", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get image: status = %d", get.Code)
	}
	if get.Header().Get("X-Image-Key") != "猫猫/alice_1.png" {
		t.Fatalf("X-Image-Key = %q", get.Header().Get("X-Image-Key"))
	}

	random := doJSON(t, router, http.MethodGet, "/v1/galleries/猫猫/images/random", nil)
	if random.Code != http.StatusOK {
		t.Fatalf("random image: status = %d", random.Code)
	}
}

func TestGalleryDuplicateImageOutcome(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{Duplicate: true})
	createGallery(t, router, "猫猫")

	data := testPNG(t, 8, 8, color.NRGBA{1, 2, 3, 255})
	if w := postImage(t, router, "猫猫", "a", data); w.Code != http.StatusCreated {
		t.Fatalf("first add: status = %d", w.Code)
	}

	w := postImage(t, router, "猫猫", "b", data)
	// 查重命中走正常答复，不是 HTTP 错误。
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if int(body["code"].(float64)) != errcode.DuplicateImage {
		t.Fatalf("code = %v", body["code"])
	}
	if body["message"] != "图片已存在于图库【猫猫】中" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestGalleryCapacityConflict(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{Capacity: 1})
	createGallery(t, router, "猫猫")

	if w := postImage(t, router, "猫猫", "a", testPNG(t, 8, 8, color.NRGBA{1, 0, 0, 255})); w.Code != http.StatusCreated {
		t.Fatalf("first add: status = %d", w.Code)
	}
	w := postImage(t, router, "猫猫", "a", testPNG(t, 8, 8, color.NRGBA{2, 0, 0, 255}))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if int(body["code"].(float64)) != errcode.CapacityExceeded {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestGalleryDeleteImageOutOfRange(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})
	createGallery(t, router, "猫猫")

	if w := postImage(t, router, "猫猫", "a", testPNG(t, 8, 8, color.NRGBA{1, 0, 0, 255})); w.Code != http.StatusCreated {
		t.Fatalf("add: status = %d", w.Code)
	}

	w := doJSON(t, router, http.MethodDelete, "/v1/galleries/猫猫/images/5", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["message"] != "图库【猫猫】中没有第5张图片" {
		t.Fatalf("message = %v", body["message"])
	}

	// 越界删除不触碰已有图片。
	if w := doJSON(t, router, http.MethodGet, "/v1/galleries/猫猫/images/1", nil); w.Code != http.StatusOK {
		t.Fatalf("existing image affected: %d", w.Code)
	}
}

func TestGalleryClearWithoutIndex(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})
	createGallery(t, router, "猫猫")

	if w := postImage(t, router, "猫猫", "a", testPNG(t, 8, 8, color.NRGBA{1, 0, 0, 255})); w.Code != http.StatusCreated {
		t.Fatalf("add: status = %d", w.Code)
	}

	w := doJSON(t, router, http.MethodDelete, "/v1/galleries/猫猫/images", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["message"] != "图库【猫猫】已清空" {
		t.Fatalf("message = %v", body["message"])
	}

	if w := doJSON(t, router, http.MethodGet, "/v1/galleries/猫猫/images/random", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected empty gallery after clear, got %d", w.Code)
	}
}

func TestGalleryListAndInfo(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})
	createGallery(t, router, "猫猫")
	createGallery(t, router, "狗狗")

	w := doJSON(t, router, http.MethodGet, "/v1/galleries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["message"] != "共2个图库" {
		t.Fatalf("message = %v", body["message"])
	}

	w = doJSON(t, router, http.MethodGet, "/v1/galleries/猫猫", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("info: status = %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["message"] != "图库【猫猫】共0张图片" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestGalleryNotFound(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})

	w := doJSON(t, router, http.MethodGet, "/v1/galleries/不存在", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if int(body["code"].(float64)) != errcode.GalleryNotFound {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestGallerySearchByCreator(t *testing.T) {
	router := newGalleryTestRouter(t, config.GalleryConfig{})
	createGallery(t, router, "猫猫")

	w := doJSON(t, router, http.MethodGet, "/v1/galleries/search?creator_id=10001", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	galleries := body["galleries"].([]any)
	if len(galleries) != 1 || galleries[0] != "猫猫" {
		t.Fatalf("galleries = %v", galleries)
	}

	w = doJSON(t, router, http.MethodGet, "/v1/galleries/search?creator_id=99999", nil)
	body = decodeBody(t, w)
	if got := body["galleries"].([]any); len(got) != 0 {
		t.Fatalf("expected no hits, got %v", got)
	}
}
