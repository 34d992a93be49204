package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"kcbxt/internal/api/middleware"
	"kcbxt/internal/errcode"
	"kcbxt/internal/fetch"
	"kcbxt/internal/ocr"
	"kcbxt/internal/parser"
	"kcbxt/internal/reminder"
	"kcbxt/internal/schedule"
)

// ScheduleHandler 负责课程表的上传、查看与删除。
type ScheduleHandler struct {
	Store     *schedule.FileStore
	Fetcher   *fetch.Fetcher
	OCR       *ocr.Client
	Logger    *slog.Logger
	ClamdAddr string
}

// NewScheduleHandler 返回 ScheduleHandler 实例。
func NewScheduleHandler(store *schedule.FileStore, fetcher *fetch.Fetcher, ocrClient *ocr.Client, logger *slog.Logger, clamdAddr string) *ScheduleHandler {
	return &ScheduleHandler{
		Store:     store,
		Fetcher:   fetcher,
		OCR:       ocrClient,
		Logger:    logger,
		ClamdAddr: clamdAddr,
	}
}

// uploadRequest 是非 multipart 上传的请求体：
// 二选一地携带附件句柄（url）或待解析的消息文本（text）。
type uploadRequest struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Target string `json:"target"`
}

// Upload 解析上传的课程表并整体覆盖该用户的已有课程表。
// 支持三种形态：multipart 文件、JSON 附件句柄（由本服务代为下载）、
// JSON 纯文本。按扩展名路由到对应解析器。
func (h *ScheduleHandler) Upload(c *gin.Context) {
	userID := c.Param("userID")
	log := middleware.LoggerFromContext(c).With(slog.String("user_id", userID))

	var (
		courses []schedule.CourseEntry
		target  string
		err     error
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		courses, target, err = h.parseMultipart(c)
	} else {
		courses, target, err = h.parseJSON(c)
	}
	if err != nil {
		var uerr userError
		if errors.As(err, &uerr) {
			log.Warn("schedule upload rejected", slog.String("reason", uerr.message))
			Error(c, uerr.status, uerr.code, uerr.message)
			return
		}
		log.Error("schedule upload failed", slog.String("error", err.Error()))
		Internal(c, "课程表处理失败，请稍后再试")
		return
	}

	if len(courses) == 0 {
		// 请求本身合法，但没有任何行/表格行能解析成课程。
		Outcome(c, errcode.ParseEmpty, "未能从内容中解析出任何课程，请检查课程表格式")
		return
	}

	if err := h.Store.Save(userID, schedule.UserSchedule{Courses: courses, NotifyTarget: target}); err != nil {
		log.Error("save schedule failed", slog.String("error", err.Error()))
		Error(c, 500, errcode.PersistenceFailure, "课程表保存失败，请稍后再试")
		return
	}

	log.Info("schedule saved", slog.Int("courses", len(courses)))
	Created(c, "课程表解析并保存成功！", gin.H{"count": len(courses)})
}

// Show 展示用户的完整课程表。
func (h *ScheduleHandler) Show(c *gin.Context) {
	userID := c.Param("userID")
	sched, err := h.Store.Load(userID)
	if errors.Is(err, schedule.ErrNotFound) {
		NotFound(c, errcode.InputUnavailable, "你还没有上传课程表，请发送Word、Excel或图片格式的课程表。")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("load schedule failed", slog.String("error", err.Error()))
		Internal(c, "课程表读取失败，请稍后再试")
		return
	}

	OK(c, formatCourses("你的课程表：", sched.Courses, ""), gin.H{"courses": sched.Courses})
}

// ShowToday 展示用户当天的课程。
func (h *ScheduleHandler) ShowToday(c *gin.Context) {
	userID := c.Param("userID")
	sched, err := h.Store.Load(userID)
	if errors.Is(err, schedule.ErrNotFound) {
		NotFound(c, errcode.InputUnavailable, "你还没有上传课程表，请发送Word、Excel或图片格式的课程表。")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("load schedule failed", slog.String("error", err.Error()))
		Internal(c, "课程表读取失败，请稍后再试")
		return
	}

	today := reminder.Today(timeNow())
	todays := sched.TodayCourses(today)
	header := fmt.Sprintf("你今天(%s)的课程：", today)
	OK(c, formatCourses(header, todays, "今天没有课程！"), gin.H{"courses": todays, "today": today})
}

// Remove 删除用户的课程表（宿主侧指令触发）。
func (h *ScheduleHandler) Remove(c *gin.Context) {
	userID := c.Param("userID")
	if err := h.Store.Delete(userID); err != nil {
		middleware.LoggerFromContext(c).Error("delete schedule failed", slog.String("error", err.Error()))
		Error(c, 500, errcode.PersistenceFailure, "课程表删除失败，请稍后再试")
		return
	}
	OK(c, "课程表已删除。", nil)
}

// userError 是需要原样回给聊天用户的预期错误。
type userError struct {
	status  int
	code    int
	message string
}

func (e userError) Error() string { return e.message }

func (h *ScheduleHandler) parseMultipart(c *gin.Context) ([]schedule.CourseEntry, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", userError{400, errcode.InputUnavailable, "缺少文件"}
	}
	target := c.PostForm("target")

	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}

	courses, err := h.extract(c.Request.Context(), file.Filename, buf.Bytes())
	return courses, target, err
}

func (h *ScheduleHandler) parseJSON(c *gin.Context) ([]schedule.CourseEntry, string, error) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", userError{400, errcode.InputUnavailable, "请求格式不正确"}
	}

	if req.Text != "" {
		return parser.ParseText(req.Text), req.Target, nil
	}
	if req.URL == "" {
		return nil, "", userError{400, errcode.InputUnavailable, "请提供课程表文件或文本"}
	}

	data, err := h.Fetcher.Fetch(c.Request.Context(), req.URL)
	if errors.Is(err, fetch.ErrFileUnavailable) {
		return nil, "", userError{400, errcode.InputUnavailable, "课程表文件获取失败，请重新发送"}
	}
	if err != nil {
		return nil, "", err
	}

	name := req.Name
	if name == "" {
		name = fileNameFromURL(req.URL)
	}
	courses, err := h.extract(c.Request.Context(), name, data)
	return courses, req.Target, err
}

// extract 按文件扩展名路由到对应解析器。
func (h *ScheduleHandler) extract(ctx context.Context, filename string, data []byte) ([]schedule.CourseEntry, error) {
	if err := h.scan(data); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".docx", ".doc":
		return h.parseViaTempFile(data, ext, parser.ParseWord)
	case ".xlsx":
		return h.parseViaTempFile(data, ext, parser.ParseXLSX)
	case ".jpg", ".jpeg", ".png", ".bmp":
		if !h.OCR.Configured() {
			return nil, userError{400, errcode.UnsupportedFormat, "请在插件后台配置图片识别API接口！"}
		}
		courses, err := parser.ParseImage(ctx, h.OCR, data)
		if err != nil {
			return nil, fmt.Errorf("ocr parse: %w", err)
		}
		return courses, nil
	default:
		return nil, userError{400, errcode.UnsupportedFormat, "暂不支持该文件类型，仅支持Word、Excel或图片格式的课程表！"}
	}
}

// parseViaTempFile 把字节落成临时文件再交给基于路径的解码库。
func (h *ScheduleHandler) parseViaTempFile(data []byte, ext string, parse func(string) ([]schedule.CourseEntry, error)) ([]schedule.CourseEntry, error) {
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp upload file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp upload file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp upload file: %w", err)
	}

	courses, err := parse(tmpPath)
	if err != nil {
		return nil, userError{400, errcode.UnsupportedFormat, "课程表文件无法解析，请确认文件未损坏"}
	}
	return courses, nil
}

// scan 在解析前做病毒扫描；未配置 clamd 时跳过。
func (h *ScheduleHandler) scan(data []byte) error {
	if h.ClamdAddr == "" {
		return nil
	}

	clamdClient := clamd.NewClamd(h.ClamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return fmt.Errorf("scan upload: %w", err)
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return userError{400, errcode.UnsupportedFormat, "检测到恶意文件，已拒绝"}
		}
	}
	return nil
}

func formatCourses(header string, courses []schedule.CourseEntry, empty string) string {
	if len(courses) == 0 {
		return header + "\n" + empty
	}
	lines := make([]string, 0, len(courses)+1)
	lines = append(lines, header)
	for _, course := range courses {
		lines = append(lines, fmt.Sprintf("%s %s %s %s", course.Course, course.Time, course.Location, course.Teacher))
	}
	return strings.Join(lines, "\n")
}

func fileNameFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return filepath.Base(parsed.Path)
}

// 便于测试替换「现在」。
var timeNow = time.Now
