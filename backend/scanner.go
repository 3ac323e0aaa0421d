// backend/scanner.go
package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
)

type ClamdScanner struct {
	client *clamd.Clamd
}

// NewScanner 创建一个新的 ClamdScanner 实例。
// 它会尝试连接到 clamd 守护进程，并在连接失败时进行多次重试。
func NewScanner(clamdAddress string) (*ClamdScanner, error) {
	if clamdAddress == "" {
		slog.Warn("ClamdSocket 未配置，导入文件将不做病毒扫描。")
		return &ClamdScanner{client: nil}, nil
	}

	const maxRetries = 5
	const retryDelay = 5 * time.Second

	var c *clamd.Clamd
	var err error

	for i := 1; i <= maxRetries; i++ {
		c = clamd.NewClamd(clamdAddress)
		err = c.Ping()
		if err == nil {
			slog.Info("成功连接到 clamd 守护进程", "address", clamdAddress, "attempt", i)
			return &ClamdScanner{client: c}, nil
		}

		slog.Warn("无法连接到 clamd 守护进程", "attempt", i, "maxAttempts", maxRetries, "address", clamdAddress, "error", err)

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	slog.Error("最终无法连接到 clamd，所有重试均失败", "maxAttempts", maxRetries)
	return nil, err
}

// ScanFile 以 INSTREAM 方式把落地文件发送给 clamd，clamd 无需访问临时目录
func (s *ClamdScanner) ScanFile(filePath string) (string, string) {
	if s == nil || s.client == nil {
		return ScanStatusSkipped, "扫描器不可用，已跳过"
	}

	f, err := os.Open(filePath)
	if err != nil {
		slog.Error("无法打开待扫描文件", "component", "clamd", "path", filePath, "error", err)
		return ScanStatusError, "无法读取待扫描文件"
	}
	defer f.Close()

	status, detail := s.scanStream(f)
	slog.Info("扫描完成", "component", "clamd", "path", filePath, "status", status, "detail", detail)
	return status, detail
}

// scanStream 读完 clamd 的全部响应后才关闭连接，首个 FOUND 或 ERROR 决定结果
func (s *ClamdScanner) scanStream(r io.Reader) (string, string) {
	abort := make(chan bool)
	defer close(abort)

	response, err := s.client.ScanStream(r, abort)
	if err != nil {
		slog.Error("Clamd 扫描通信出错", "component", "clamd", "error", err)
		return ScanStatusError, "Clamd扫描通信失败"
	}

	status, detail := "", ""
	for result := range response {
		slog.Debug("收到 Clamd 响应", "component", "clamd", "rawResponse", result.Raw)
		if status != "" {
			continue
		}
		switch result.Status {
		case clamd.RES_FOUND:
			status, detail = ScanStatusInfected, describe(result, " FOUND")
			slog.Warn("危险! 文件发现病毒", "component", "clamd", "virus", detail)
		case clamd.RES_ERROR, clamd.RES_PARSE_ERROR:
			status, detail = ScanStatusError, describe(result, " ERROR")
		case clamd.RES_OK:
			status, detail = ScanStatusClean, "文件安全"
		}
	}
	if status == "" {
		return ScanStatusError, "Clamd 未返回扫描结果"
	}
	return status, detail
}

func describe(result *clamd.ScanResult, suffix string) string {
	if result.Description != "" {
		return result.Description
	}
	return strings.TrimSuffix(strings.TrimPrefix(result.Raw, result.Path+": "), suffix)
}
