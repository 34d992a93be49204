// Package fetch 负责取回消息里携带的附件：URL 走 HTTP 下载，其余按本地路径读取。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrFileUnavailable 表示附件无法取回（下载失败或本地文件不存在）。
var ErrFileUnavailable = errors.New("file unavailable")

// Fetcher 按附件句柄取回文件内容。
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher 返回附件取回器。
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch 取回附件字节。handle 以 http:// 或 https:// 开头时走网络下载，
// 否则视为本地文件路径。
func (f *Fetcher) Fetch(ctx context.Context, handle string) ([]byte, error) {
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return f.download(ctx, handle)
	}

	data, err := os.ReadFile(handle)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: local file %q does not exist", ErrFileUnavailable, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("read local file %q: %w", handle, err)
	}
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %q: %v", ErrFileUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: download %q status %d", ErrFileUnavailable, url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	return data, nil
}
