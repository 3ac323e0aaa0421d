// storage/local.go
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	basePath string
	create   func(string) (io.WriteCloser, error)
}

func createFile(name string) (io.WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func NewLocalStorage(path string) (*LocalStorage, error) {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return nil, fmt.Errorf("无法创建本地存储目录 %s: %w", path, err)
	}
	slog.Info("使用本地文件存储", "path", path)
	return &LocalStorage{basePath: path, create: createFile}, nil
}

// fullPath 将 key 限制在 basePath 之内，拒绝 ".." 逃逸
func (l *LocalStorage) fullPath(key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash("/" + key))
	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	if rel == "" || rel == "." {
		return "", fmt.Errorf("本地存储 key 无效: %q", key)
	}
	return filepath.Join(l.basePath, rel), nil
}

// Save 写入 key；关闭失败意味着内容可能未落盘，在拷贝成功时作为错误返回
func (l *LocalStorage) Save(ctx context.Context, key string, reader io.Reader) (written int64, err error) {
	path, err := l.fullPath(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return 0, fmt.Errorf("本地存储创建目录失败: %w", err)
	}
	file, err := l.create(path)
	if err != nil {
		return 0, fmt.Errorf("本地存储创建文件失败: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("本地存储关闭文件失败: %w", cerr)
		}
	}()

	return io.Copy(file, reader)
}

func (l *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("本地存储打开文件失败: %w", err)
	}
	return file, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.fullPath(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	// 如果文件已经不存在，我们不认为这是一个错误
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("本地存储删除文件失败: %w", err)
	}
	return nil
}

func (l *LocalStorage) Exists(ctx context.Context, key string) bool {
	path, err := l.fullPath(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
