// backend/logger.go
package main

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger 初始化一个全局的 slog JSON 格式记录器
func InitLogger() {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("PHOTOAFFIX_LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
}
