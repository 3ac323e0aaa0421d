// Package iomanager 将内容定位符指向的数据落地为应用目录下的临时文件。
package iomanager

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TempPrefix 临时文件名前缀
	TempPrefix      = "AFFIX_"
	timestampLayout = "20060102_150405"
	defaultBufSize  = 64 * 1024
)

// IoManager 定义了定位符读取与临时文件落地的操作
type IoManager interface {
	// MakeTempFile 返回 <root>/<appName>/AFFIX_<时间戳><extension>，目录保证存在，文件本身不创建
	MakeTempFile(extension string) (string, error)

	// OpenStream 打开定位符的数据流；file 方案直接读取路径，其余交给 ContentResolver
	OpenStream(ctx context.Context, loc Locator) (io.ReadCloser, error)

	// CopyURIToFile 将定位符的全部内容写入 file（创建或截断），返回写入字节数
	CopyURIToFile(ctx context.Context, loc Locator, file string) (int64, error)
}

// Options 为 RealIoManager 的配置。
type Options struct {
	// Root 共享存储根目录（必需）。
	Root string
	// AppName 应用目录名（必需）。
	AppName string
	// Resolver 处理非 file 方案；为 nil 时使用空的 Registry。
	Resolver ContentResolver
	// UniqueNames 在时间戳后追加随机后缀，避免同一秒内的文件名碰撞。
	UniqueNames bool
	// Clock 时间来源，默认 time.Now。
	Clock func() time.Time
	// BufSize 写缓冲区大小；<=0 使用 64KiB。
	BufSize int
}

type RealIoManager struct {
	root     string
	appName  string
	resolver ContentResolver
	unique   bool
	now      func() time.Time
	bufSize  int

	mkdirAll func(string, os.FileMode) error
	create   func(string) (io.WriteCloser, error)
}

var _ IoManager = (*RealIoManager)(nil)

func New(opts Options) (*RealIoManager, error) {
	if strings.TrimSpace(opts.Root) == "" || strings.TrimSpace(opts.AppName) == "" {
		return nil, os.ErrInvalid
	}
	m := &RealIoManager{
		root:     opts.Root,
		appName:  opts.AppName,
		resolver: opts.Resolver,
		unique:   opts.UniqueNames,
		now:      opts.Clock,
		bufSize:  opts.BufSize,
		mkdirAll: os.MkdirAll,
		create: func(name string) (io.WriteCloser, error) {
			f, err := os.Create(name)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
	if m.resolver == nil {
		m.resolver = NewRegistry()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.bufSize <= 0 {
		m.bufSize = defaultBufSize
	}
	return m, nil
}

// TempDir 返回临时文件所在目录。
func (m *RealIoManager) TempDir() string {
	return filepath.Join(m.root, m.appName)
}

func (m *RealIoManager) MakeTempFile(extension string) (string, error) {
	parent := m.TempDir()
	if err := m.mkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTempDir, parent, err)
	}
	name := TempPrefix + m.now().Format(timestampLayout)
	if m.unique {
		name += "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return filepath.Join(parent, name+extension), nil
}

func (m *RealIoManager) OpenStream(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	if loc.IsFile() {
		p := loc.Path()
		if p == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingPath, loc)
		}
		f, err := os.Open(filepath.FromSlash(p))
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	rc, err := m.resolver.OpenInputStream(ctx, loc)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStream, loc)
	}
	return rc, nil
}

func (m *RealIoManager) CopyURIToFile(ctx context.Context, loc Locator, file string) (written int64, err error) {
	in, err := m.OpenStream(ctx, loc)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := m.create(file)
	if err != nil {
		return 0, err
	}
	// 关闭失败意味着内容可能未落盘，仅在拷贝本身成功时上报
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriterSize(out, m.bufSize)
	written, err = io.Copy(bw, readerWithCtx(ctx, in))
	if err != nil {
		return written, err
	}
	if err = bw.Flush(); err != nil {
		return written, err
	}
	slog.Debug("定位符内容已写入文件", "locator", loc.String(), "file", file, "bytes", written)
	return written, nil
}

// readerWithCtx 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
