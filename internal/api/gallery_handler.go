package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kcbxt/internal/api/middleware"
	"kcbxt/internal/errcode"
	"kcbxt/internal/gallery"
)

// GalleryHandler 负责图库的创建、删除、存图、删图、取图与检索。
type GalleryHandler struct {
	Manager *gallery.Manager
	Logger  *slog.Logger
}

// NewGalleryHandler 返回 GalleryHandler 实例。
func NewGalleryHandler(manager *gallery.Manager, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{Manager: manager, Logger: logger}
}

type createGalleryRequest struct {
	Name        string `json:"name" binding:"required"`
	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`
}

// Create 新建图库。
func (h *GalleryHandler) Create(c *gin.Context) {
	var req createGalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请提供图库名称")
		return
	}

	g, err := h.Manager.Create(req.Name, req.CreatorID, req.CreatorName)
	if errors.Is(err, gallery.ErrGalleryExists) {
		Conflict(c, errcode.GalleryExists, fmt.Sprintf("图库【%s】已存在", req.Name))
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("create gallery failed", slog.String("error", err.Error()))
		Error(c, http.StatusInternalServerError, errcode.PersistenceFailure, "图库创建失败，请稍后再试")
		return
	}

	Created(c, fmt.Sprintf("图库【%s】创建成功", g.Name()), nil)
}

// Delete 整体删除图库（图片与元数据）。
func (h *GalleryHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	err := h.Manager.Delete(c.Request.Context(), name)
	if errors.Is(err, gallery.ErrGalleryNotFound) {
		NotFound(c, errcode.GalleryNotFound, fmt.Sprintf("图库【%s】不存在", name))
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("delete gallery failed", slog.String("error", err.Error()))
		Error(c, http.StatusInternalServerError, errcode.PersistenceFailure, "图库删除失败，请稍后再试")
		return
	}
	OK(c, fmt.Sprintf("图库【%s】已删除", name), nil)
}

// List 列出全部图库（图库列表）。
func (h *GalleryHandler) List(c *gin.Context) {
	items := make([]gallery.Info, 0)
	for _, g := range h.Manager.List() {
		info, err := g.Info(c.Request.Context())
		if err != nil {
			middleware.LoggerFromContext(c).Error("read gallery info failed",
				slog.String("gallery", g.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, info)
	}
	OK(c, fmt.Sprintf("共%d个图库", len(items)), gin.H{"galleries": items})
}

// Info 返回单个图库的配置与实时图片数量（图库详情）。
func (h *GalleryHandler) Info(c *gin.Context) {
	g, err := h.lookup(c)
	if err != nil {
		return
	}
	info, err := g.Info(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("read gallery info failed", slog.String("error", err.Error()))
		Internal(c, "图库信息读取失败，请稍后再试")
		return
	}
	OK(c, fmt.Sprintf("图库【%s】共%d张图片", info.Name, info.ImageCount), gin.H{"gallery": info})
}

// AddImage 向图库存图（存图）。
func (h *GalleryHandler) AddImage(c *gin.Context) {
	g, err := h.lookup(c)
	if err != nil {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少图片文件")
		return
	}
	label := c.PostForm("label")

	src, err := file.Open()
	if err != nil {
		Internal(c, "图片读取失败")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		Internal(c, "图片读取失败")
		return
	}

	key, err := g.AddImage(c.Request.Context(), data, label)
	switch {
	case errors.Is(err, gallery.ErrCapacityExceeded):
		Conflict(c, errcode.CapacityExceeded, fmt.Sprintf("图库【%s】已达到容量上限", g.Name()))
		return
	case errors.Is(err, gallery.ErrDuplicateImage):
		// 查重命中不是错误：不入库，但正常答复。
		Outcome(c, errcode.DuplicateImage, fmt.Sprintf("图片已存在于图库【%s】中", g.Name()))
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("add image failed", slog.String("error", err.Error()))
		Internal(c, "图片保存失败，请稍后再试")
		return
	}

	Created(c, fmt.Sprintf("图片已添加到图库【%s】中", g.Name()), gin.H{"key": key})
}

// DeleteImage 删除指定序号的图片；不带序号则清空图库（删图）。
func (h *GalleryHandler) DeleteImage(c *gin.Context) {
	g, err := h.lookup(c)
	if err != nil {
		return
	}

	indexStr := c.Param("index")
	if indexStr == "" {
		if err := g.Clear(c.Request.Context()); err != nil {
			middleware.LoggerFromContext(c).Error("clear gallery failed", slog.String("error", err.Error()))
			Internal(c, "图库清空失败，请稍后再试")
			return
		}
		OK(c, fmt.Sprintf("图库【%s】已清空", g.Name()), nil)
		return
	}

	index, convErr := strconv.Atoi(indexStr)
	if convErr != nil {
		BadRequest(c, "图片序号必须是数字")
		return
	}

	err = g.DeleteImage(c.Request.Context(), index)
	if errors.Is(err, gallery.ErrImageNotFound) {
		NotFound(c, errcode.ImageNotFound, fmt.Sprintf("图库【%s】中没有第%d张图片", g.Name(), index))
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("delete image failed", slog.String("error", err.Error()))
		Internal(c, "图片删除失败，请稍后再试")
		return
	}
	OK(c, fmt.Sprintf("已删除图库【%s】中的第%d张图片", g.Name(), index), nil)
}

// GetImage 取指定序号的图片；路由到 /random 时均匀随机取一张（查看）。
func (h *GalleryHandler) GetImage(c *gin.Context) {
	g, err := h.lookup(c)
	if err != nil {
		return
	}

	var img gallery.Image
	indexStr := c.Param("index")
	if indexStr == "" || indexStr == "random" {
		img, err = g.RandomImage(c.Request.Context())
	} else {
		index, convErr := strconv.Atoi(indexStr)
		if convErr != nil {
			BadRequest(c, "图片序号必须是数字")
			return
		}
		img, err = g.GetImage(c.Request.Context(), index)
	}

	if errors.Is(err, gallery.ErrImageNotFound) {
		NotFound(c, errcode.ImageNotFound, fmt.Sprintf("图库【%s】中没有这张图片", g.Name()))
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("get image failed", slog.String("error", err.Error()))
		Internal(c, "图片读取失败，请稍后再试")
		return
	}

	c.Header("X-Image-Key", img.Key)
	c.Data(http.StatusOK, http.DetectContentType(img.Data), img.Data)
}

// Search 按关键词或属性条件检索图库。
func (h *GalleryHandler) Search(c *gin.Context) {
	if keyword := c.Query("keyword"); keyword != "" {
		names := galleryNames(h.Manager.ByKeyword(keyword))
		OK(c, fmt.Sprintf("命中%d个图库", len(names)), gin.H{"galleries": names})
		return
	}

	var filter gallery.Filter
	if v := c.Query("creator_id"); v != "" {
		filter.CreatorID = &v
	}
	if v := c.Query("capacity"); v != "" {
		capValue, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(c, "capacity 必须是数字")
			return
		}
		filter.Capacity = &capValue
	}
	if v, ok := boolQuery(c, "compress"); ok {
		filter.Compress = v
	}
	if v, ok := boolQuery(c, "duplicate"); ok {
		filter.Duplicate = v
	}
	if v, ok := boolQuery(c, "fuzzy"); ok {
		filter.Fuzzy = v
	}

	names := galleryNames(h.Manager.Match(filter))
	OK(c, fmt.Sprintf("命中%d个图库", len(names)), gin.H{"galleries": names})
}

// lookup 解析路径中的图库名；不存在时直接写出 404 并返回错误。
func (h *GalleryHandler) lookup(c *gin.Context) (*gallery.Gallery, error) {
	name := c.Param("name")
	g, err := h.Manager.Get(name)
	if err != nil {
		NotFound(c, errcode.GalleryNotFound, fmt.Sprintf("图库【%s】不存在", name))
		return nil, err
	}
	return g, nil
}

func galleryNames(gs []*gallery.Gallery) []string {
	names := make([]string, 0, len(gs))
	for _, g := range gs {
		names = append(names, g.Name())
	}
	return names
}

func boolQuery(c *gin.Context, key string) (*bool, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, false
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
