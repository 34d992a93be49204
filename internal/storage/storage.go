// Package storage 提供图库对象存储的统一抽象：
// 本地文件系统与 MinIO/S3 兼容存储两种后端。
// 对象键统一使用 "图库名/文件名" 形式的斜杠路径。
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound 表示请求的对象不存在。
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage 是图库使用的对象存储端口。
// List 必须按键名升序返回，图库的位置索引建立在这个顺序之上。
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
