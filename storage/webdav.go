package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/studio-b12/gowebdav"
)

type WebDAVStorage struct {
	client *gowebdav.Client
}

func NewWebDAVStorage(config WebDAVConfig) (*WebDAVStorage, error) {
	client := gowebdav.NewClient(config.URL, config.Username, config.Password)

	// 检查连接和认证
	if err := client.Connect(); err != nil {
		if strings.Contains(err.Error(), fmt.Sprintf("%d", http.StatusUnauthorized)) {
			return nil, fmt.Errorf("WebDAV 认证失败 (401 Unauthorized): 请检查用户名和密码: %w", err)
		}
		return nil, fmt.Errorf("WebDAV 服务器连接失败 at %s: %w", config.URL, err)
	}

	slog.Info("使用 WebDAV 存储", "url", config.URL)
	return &WebDAVStorage{client: client}, nil
}

func (w *WebDAVStorage) Save(ctx context.Context, key string, reader io.Reader) (int64, error) {
	if dir := path.Dir(key); dir != "." && dir != "/" {
		if err := w.client.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("WebDAV 存储创建目录失败: %w", err)
		}
	}
	counter := &countingReader{r: reader}
	if err := w.client.WriteStream(key, counter, 0644); err != nil {
		return 0, fmt.Errorf("WebDAV 存储写入失败: %w", err)
	}
	return counter.n, nil
}

func (w *WebDAVStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	stream, err := w.client.ReadStream(key)
	if err != nil {
		// gowebdav 在文件不存在时会返回符合 os.IsNotExist 的错误
		if os.IsNotExist(err) || gowebdav.IsErrNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("WebDAV 存储读取流失败: %w", err)
	}
	return stream, nil
}

func (w *WebDAVStorage) Delete(ctx context.Context, key string) error {
	err := w.client.Remove(key)
	if err != nil {
		if os.IsNotExist(err) || gowebdav.IsErrNotFound(err) {
			return nil // 文件本就不存在，任务完成
		}
		return fmt.Errorf("WebDAV 存储删除文件失败: %w", err)
	}
	return nil
}

func (w *WebDAVStorage) Exists(ctx context.Context, key string) bool {
	_, err := w.client.Stat(key)
	return err == nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
