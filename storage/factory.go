package storage

import (
	"fmt"
	"strings"
)

// New 根据配置类型创建对应的存储后端
func New(config Config) (Provider, error) {
	switch strings.ToLower(config.Type) {
	case "local":
		return NewLocalStorage(config.LocalPath)
	case "s3":
		return NewS3Storage(config.S3)
	case "webdav":
		return NewWebDAVStorage(config.WebDAV)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", config.Type)
	}
}
