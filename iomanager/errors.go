package iomanager

import "errors"

var (
	// ErrNoStream 内容解析器无法为该定位符提供数据流（定位符无效、无权限、对象不存在等）。
	ErrNoStream = errors.New("no stream available for locator")
	// ErrMissingPath file 方案的定位符没有路径部分。
	ErrMissingPath = errors.New("file locator has no path")
	// ErrTempDir 临时文件目录无法创建。
	ErrTempDir = errors.New("temp directory unavailable")
	// ErrInvalidLocator 定位符字符串无法解析。
	ErrInvalidLocator = errors.New("invalid locator")
	// ErrForbiddenAddress http 定位符解析到了回环、内网或链路本地地址。
	ErrForbiddenAddress = errors.New("address not allowed for remote locator")
)
