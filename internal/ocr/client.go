// Package ocr 封装外部图片文字识别服务的 HTTP 客户端。
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client 调用外部 OCR 接口：multipart 上传图片，可选 Bearer 鉴权。
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient 返回 OCR 客户端；apiKey 可为空。
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL:     strings.TrimSpace(apiURL),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured 报告是否配置了识别接口地址。
func (c *Client) Configured() bool {
	return c.apiURL != ""
}

// ocrResponse 兼容两种返回格式：顶层 text 或嵌套的 data.text。
type ocrResponse struct {
	Text string `json:"text"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

// Recognize 上传图片并返回识别出的文本。
// 接口返回空文本视为「没有识别到内容」，不是错误。
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("ocr api url is not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "schedule.png")
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request ocr service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return "", fmt.Errorf("ocr service status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}

	var parsed ocrResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if parsed.Text != "" {
		return parsed.Text, nil
	}
	return parsed.Data.Text, nil
}
