// backend/setup.go
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SetupHandler 只在未初始化的配置模式下提供服务
type SetupHandler struct {
	DataDir     string
	ContentRoot string
}

type SetupPayload struct {
	Database DBConfig      `json:"database"`
	Sources  SourcesConfig `json:"sources"`
}

// GetStatus 告诉调用方需要先完成初始化配置
func (h *SetupHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"needsInit": true, "dataDir": h.DataDir})
}

// ValidateConfig 尝试连接数据库与内容来源，成功后返回推荐的环境变量。
// 只做连接检查，不迁移表结构；sqlite 文件必须位于 DataDir 之内。
func (h *SetupHandler) ValidateConfig(c *gin.Context) {
	var payload SetupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "无效的配置数据: " + err.Error()})
		return
	}

	if strings.EqualFold(payload.Database.Type, "sqlite") && !sqlitePathWithin(h.DataDir, payload.Database.DSN) {
		slog.Warn("配置验证：拒绝数据目录之外的 sqlite 文件", "clientIP", c.ClientIP(), "dsn", payload.Database.DSN)
		c.JSON(http.StatusBadRequest, gin.H{"field": "database", "message": fmt.Sprintf("sqlite 文件必须位于 %s 之内", h.DataDir)})
		return
	}

	// 1. 验证数据库连接
	db, err := OpenDatabase(payload.Database)
	if err == nil {
		sqlDB, derr := db.DB()
		if derr != nil {
			err = derr
		} else {
			defer sqlDB.Close()
			err = sqlDB.PingContext(c.Request.Context())
		}
	}
	if err != nil {
		slog.Error("配置验证：数据库连接失败", "error", err)
		c.JSON(http.StatusConflict, gin.H{"field": "database", "message": "数据库连接失败: " + err.Error()})
		return
	}
	slog.Info("配置验证：数据库连接成功")

	// 2. 验证内容来源
	reg, err := BuildResolver(h.ContentRoot, payload.Sources)
	if err != nil {
		slog.Error("配置验证：内容来源配置失败", "error", err)
		c.JSON(http.StatusConflict, gin.H{"field": "sources", "message": "内容来源配置失败: " + err.Error()})
		return
	}
	slog.Info("配置验证：内容来源配置成功", "schemes", reg.Schemes())

	c.JSON(http.StatusOK, gin.H{
		"message": "配置验证成功！请使用以下环境变量重新启动应用。",
		"schemes": reg.Schemes(),
		"envVars": generateEnvVars(payload),
	})
}

// generateEnvVars 从配置生成环境变量字符串
func generateEnvVars(payload SetupPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PHOTOAFFIX_INITIALIZED=true\n")
	fmt.Fprintf(&b, "PHOTOAFFIX_DATABASE_TYPE=%s\n", payload.Database.Type)
	fmt.Fprintf(&b, "PHOTOAFFIX_DATABASE_DSN=%s\n", payload.Database.DSN)
	if s3 := payload.Sources.S3; s3.Bucket != "" {
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_S3_ENDPOINT=%s\n", s3.Endpoint)
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_S3_REGION=%s\n", s3.Region)
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_S3_BUCKET=%s\n", s3.Bucket)
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_S3_ACCESSKEYID=%s\n", s3.AccessKeyID)
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_S3_SECRETACCESSKEY=<secret>\n")
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_S3_USEPATHSTYLE=%t\n", s3.UsePathStyle)
	}
	if dav := payload.Sources.WebDAV; dav.URL != "" {
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_WEBDAV_URL=%s\n", dav.URL)
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_WEBDAV_USERNAME=%s\n", dav.Username)
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_WEBDAV_PASSWORD=<secret>\n")
	}
	if payload.Sources.HTTPTimeoutSeconds > 0 {
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_HTTPTIMEOUTSECONDS=%d\n", payload.Sources.HTTPTimeoutSeconds)
	}
	if payload.Sources.AllowPrivateHTTP {
		fmt.Fprintf(&b, "PHOTOAFFIX_SOURCES_ALLOWPRIVATEHTTP=true\n")
	}
	return b.String()
}
