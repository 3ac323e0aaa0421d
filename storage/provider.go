// storage/provider.go
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound 表示 key 对应的对象在后端中不存在
var ErrNotFound = errors.New("storage: object not found")

// Provider 定义了所有存储后端必须实现的接口
type Provider interface {
	// Save 将读取器中的数据保存到指定的 key
	Save(ctx context.Context, key string, reader io.Reader) (int64, error)

	// Open 返回一个可读取 key 对应内容的 io.ReadCloser，不存在时返回 ErrNotFound
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除 key 对应的对象，对象不存在不视为错误
	Delete(ctx context.Context, key string) error

	// Exists 判断 key 是否存在
	Exists(ctx context.Context, key string) bool
}
