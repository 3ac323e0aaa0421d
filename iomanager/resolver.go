package iomanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"photoaffix/storage"
)

// ContentResolver 为非 file 方案的定位符提供数据流。
// 无法提供时返回包装了 ErrNoStream 的错误，而不是 nil 流。
type ContentResolver interface {
	OpenInputStream(ctx context.Context, loc Locator) (io.ReadCloser, error)
}

// ResolverFunc 将普通函数适配为 ContentResolver。
type ResolverFunc func(ctx context.Context, loc Locator) (io.ReadCloser, error)

func (f ResolverFunc) OpenInputStream(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	return f(ctx, loc)
}

// Registry 按方案分派到已注册的解析器，可并发使用。
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]ContentResolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]ContentResolver)}
}

// Register 绑定方案（大小写不敏感）与解析器，重复注册会覆盖。
func (r *Registry) Register(scheme string, res ContentResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[strings.ToLower(scheme)] = res
}

// Schemes 返回已注册方案的有序列表。
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.resolvers))
	for s := range r.resolvers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) OpenInputStream(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	r.mu.RLock()
	res, ok := r.resolvers[loc.Scheme()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrNoStream, loc.Scheme())
	}
	return res.OpenInputStream(ctx, loc)
}

// KeyFunc 将定位符映射为存储后端的 key；ok 为 false 表示该后端不负责此定位符。
type KeyFunc func(loc Locator) (key string, ok bool)

// ProviderResolver 通过 storage.Provider 提供数据流。
type ProviderResolver struct {
	provider storage.Provider
	key      KeyFunc
}

func NewProviderResolver(p storage.Provider, key KeyFunc) *ProviderResolver {
	return &ProviderResolver{provider: p, key: key}
}

func (r *ProviderResolver) OpenInputStream(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	key, ok := r.key(loc)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoStream, loc)
	}
	rc, err := r.provider.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoStream, loc)
		}
		return nil, err
	}
	return rc, nil
}

// NewContentResolver 处理 content://authority/path，key 为 authority/path。
func NewContentResolver(p storage.Provider) *ProviderResolver {
	return NewProviderResolver(p, func(loc Locator) (string, bool) {
		key := strings.TrimPrefix(path.Join(loc.Host(), loc.Path()), "/")
		return key, key != "" && key != "."
	})
}

// NewS3Resolver 处理 s3://bucket/key，仅接受与 bucket 相同的主机部分。
func NewS3Resolver(p storage.Provider, bucket string) *ProviderResolver {
	return NewProviderResolver(p, func(loc Locator) (string, bool) {
		if bucket != "" && loc.Host() != bucket {
			return "", false
		}
		key := strings.TrimPrefix(loc.Path(), "/")
		return key, key != ""
	})
}

// NewWebDAVResolver 处理 webdav://host/path，host 按不含端口的主机名比较，为空时接受任意主机。
func NewWebDAVResolver(p storage.Provider, host string) *ProviderResolver {
	return NewProviderResolver(p, func(loc Locator) (string, bool) {
		if host != "" && !strings.EqualFold(loc.Hostname(), host) {
			return "", false
		}
		key := loc.Path()
		return key, key != "" && key != "/"
	})
}
