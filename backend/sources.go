// backend/sources.go
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"photoaffix/iomanager"
	"photoaffix/storage"
)

// BuildResolver 根据配置注册各方案的内容解析器。
// content:// 总是由 ContentRoot 下的本地存储提供；s3 与 webdav 仅在配置后注册。
func BuildResolver(contentRoot string, sources SourcesConfig) (*iomanager.Registry, error) {
	reg := iomanager.NewRegistry()

	content, err := storage.New(storage.Config{Type: "local", LocalPath: contentRoot})
	if err != nil {
		return nil, err
	}
	reg.Register("content", iomanager.NewContentResolver(content))

	if sources.S3.Bucket != "" {
		p, err := storage.New(storage.Config{Type: "s3", S3: sources.S3})
		if err != nil {
			return nil, err
		}
		reg.Register("s3", iomanager.NewS3Resolver(p, sources.S3.Bucket))
	}

	if sources.WebDAV.URL != "" {
		u, err := url.Parse(sources.WebDAV.URL)
		if err != nil {
			return nil, fmt.Errorf("WebDAV 地址无效: %w", err)
		}
		p, err := storage.New(storage.Config{Type: "webdav", WebDAV: sources.WebDAV})
		if err != nil {
			return nil, err
		}
		res := iomanager.NewWebDAVResolver(p, u.Hostname())
		reg.Register("webdav", res)
		reg.Register("webdavs", res)
	}

	timeout := time.Duration(sources.HTTPTimeoutSeconds) * time.Second
	client := iomanager.NewPublicHTTPClient(timeout)
	if sources.AllowPrivateHTTP {
		slog.Warn("http(s) 定位符允许访问内网地址")
		client = &http.Client{Timeout: timeout}
	}
	httpRes := iomanager.NewHTTPResolver(client)
	reg.Register("http", httpRes)
	reg.Register("https", httpRes)

	slog.Info("内容解析器已就绪", "schemes", reg.Schemes())
	return reg, nil
}
