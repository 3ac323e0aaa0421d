package iomanager

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SchemeFile 直接指向文件系统路径的定位符方案
const SchemeFile = "file"

// Locator 是不可变的内容定位符，按方案区分本地文件与由解析器管理的内容。
type Locator struct {
	u url.URL
}

// ParseLocator 解析 URI 字符串。
func ParseLocator(raw string) (Locator, error) {
	if strings.TrimSpace(raw) == "" {
		return Locator{}, ErrInvalidLocator
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	return Locator{u: *u}, nil
}

// FileLocator 为本地路径构造 file 定位符。
func FileLocator(path string) Locator {
	return Locator{u: url.URL{Scheme: SchemeFile, Path: filepath.ToSlash(path)}}
}

// Scheme 返回小写方案，缺失时为空串。
func (l Locator) Scheme() string { return strings.ToLower(l.u.Scheme) }

func (l Locator) Host() string { return l.u.Host }

// Hostname 返回不含端口的主机名。
func (l Locator) Hostname() string { return l.u.Hostname() }

func (l Locator) Path() string { return l.u.Path }

func (l Locator) String() string { return l.u.String() }

// IsFile 报告定位符是否直接指向文件系统。
func (l Locator) IsFile() bool { return strings.EqualFold(l.u.Scheme, SchemeFile) }
