// backend/handlers.go
package main

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"photoaffix/iomanager"
	"photoaffix/thumbnail"
)

const (
	defaultExtension   = ".jpg"
	maxExtensionLength = 16
	minThumbnailSize   = 16
	maxThumbnailSize   = 1024
)

type ImportPayload struct {
	Locator   string `json:"locator" binding:"required"`
	Extension string `json:"extension"`
}

type ImportHandler struct {
	DB              *gorm.DB
	Manager         iomanager.IoManager
	Scanner         *ClamdScanner
	TTL             time.Duration
	AllowFileScheme bool
	Thumb           thumbnail.Options
}

// HandleCreateImport 将定位符的内容落地为临时文件并记录
func (h *ImportHandler) HandleCreateImport(c *gin.Context) {
	var payload ImportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "无效的导入请求: " + err.Error()})
		return
	}
	loc, err := iomanager.ParseLocator(payload.Locator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "无效的定位符"})
		return
	}
	if loc.IsFile() && !h.AllowFileScheme {
		slog.Warn("拒绝 file 定位符导入", "clientIP", c.ClientIP(), "locator", loc.String())
		c.JSON(http.StatusForbidden, gin.H{"message": "不允许导入服务器本地文件"})
		return
	}
	ext, err := resolveExtension(payload.Extension, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	dest, err := h.Manager.MakeTempFile(ext)
	if err != nil {
		slog.Error("无法创建临时文件路径", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "服务器内部错误"})
		return
	}

	written, err := h.Manager.CopyURIToFile(c.Request.Context(), loc, dest)
	if err != nil {
		// 助手本身不回滚，部分写入的文件在这里清理
		_ = os.Remove(dest)
		status, msg := copyErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("导入失败: 无法复制定位符内容", "locator", loc.String(), "dest", dest, "error", err)
		} else {
			slog.Info("导入失败", "locator", loc.String(), "status", status, "error", err)
		}
		c.JSON(status, gin.H{"message": msg})
		return
	}

	scanStatus, scanResult := h.Scanner.ScanFile(dest)

	now := time.Now()
	record := Import{
		ID:         uuid.NewString(),
		Locator:    loc.String(),
		Scheme:     loc.Scheme(),
		Path:       dest,
		Extension:  ext,
		SizeBytes:  written,
		ScanStatus: scanStatus,
		ScanResult: scanResult,
		ExpiresAt:  now.Add(h.TTL),
		CreatedAt:  now,
	}
	if err := h.DB.Create(&record).Error; err != nil {
		_ = os.Remove(dest)
		slog.Error("无法保存导入记录到数据库", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法保存导入记录"})
		return
	}

	slog.Info("导入成功", "clientIP", c.ClientIP(), "id", record.ID, "scheme", record.Scheme, "bytes", written, "scanStatus", scanStatus)
	c.JSON(http.StatusCreated, gin.H{
		"id":         record.ID,
		"path":       record.Path,
		"sizeBytes":  record.SizeBytes,
		"scanStatus": record.ScanStatus,
	})
}

func copyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, iomanager.ErrNoStream), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "定位符内容不可用"
	case errors.Is(err, iomanager.ErrMissingPath), errors.Is(err, iomanager.ErrInvalidLocator):
		return http.StatusBadRequest, "无效的定位符"
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden, "没有读取该定位符的权限"
	case errors.Is(err, iomanager.ErrForbiddenAddress):
		return http.StatusForbidden, "不允许访问该地址"
	default:
		return http.StatusInternalServerError, "导入失败"
	}
}

// resolveExtension 优先使用请求中的扩展名，其次取定位符路径的扩展名
func resolveExtension(requested string, loc iomanager.Locator) (string, error) {
	ext := strings.TrimSpace(requested)
	if ext == "" {
		ext = path.Ext(loc.Path())
	}
	if ext == "" {
		return defaultExtension, nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if len(ext) > maxExtensionLength || strings.ContainsAny(ext[1:], `./\`) || len(ext) == 1 {
		return "", fmt.Errorf("无效的扩展名: %q", requested)
	}
	return ext, nil
}

func (h *ImportHandler) findImport(c *gin.Context) (Import, bool) {
	var rec Import
	err := h.DB.Where("id = ? AND expires_at > ?", c.Param("id"), time.Now()).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("查询导入记录失败", "id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "查询导入记录失败"})
			return rec, false
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "导入记录不存在或已过期"})
		return rec, false
	}
	return rec, true
}

func (h *ImportHandler) HandleGetImport(c *gin.Context) {
	rec, ok := h.findImport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ImportHandler) openImport(c *gin.Context) (Import, *os.File, bool) {
	rec, ok := h.findImport(c)
	if !ok {
		return rec, nil, false
	}
	if rec.ScanStatus == ScanStatusInfected {
		c.JSON(http.StatusForbidden, gin.H{"message": "文件未通过病毒扫描"})
		return rec, nil, false
	}
	f, err := os.Open(rec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"message": "临时文件丢失"})
		} else {
			slog.Error("无法打开临时文件", "path", rec.Path, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取文件"})
		}
		return rec, nil, false
	}
	return rec, f, true
}

// HandleImportContent 以探测到的内容类型返回落地文件
func (h *ImportHandler) HandleImportContent(c *gin.Context) {
	rec, f, ok := h.openImport(c)
	if !ok {
		return
	}
	defer f.Close()

	// 需要读取一部分来判断 Content-Type
	buffer := make([]byte, 512)
	n, err := io.ReadFull(f, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "读取文件时出错"})
		return
	}

	c.Header("Content-Type", http.DetectContentType(buffer[:n]))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	c.Status(http.StatusOK)

	// 先把已读的 buffer 写回去，再把剩下的流拷贝过去
	if _, err := c.Writer.Write(buffer[:n]); err != nil {
		return
	}
	if _, err := io.Copy(c.Writer, f); err != nil {
		slog.Error("流式传输文件到客户端时出错", "id", rec.ID, "clientIP", c.ClientIP(), "error", err)
	}
}

// HandleImportThumbnail 渲染方形缩略图；activated=true 时绘制强调色边框
func (h *ImportHandler) HandleImportThumbnail(c *gin.Context) {
	opts := h.Thumb
	if s := c.Query("size"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil || size < minThumbnailSize || size > maxThumbnailSize {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("size 必须在 %d 到 %d 之间", minThumbnailSize, maxThumbnailSize)})
			return
		}
		opts.Size = size
	}
	opts.Activated, _ = strconv.ParseBool(c.Query("activated"))

	rec, f, ok := h.openImport(c)
	if !ok {
		return
	}
	defer f.Close()

	img, err := thumbnail.Decode(f)
	if err != nil {
		slog.Info("缩略图生成失败: 不是可识别的图片", "id", rec.ID, "error", err)
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"message": "文件不是可识别的图片"})
		return
	}

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := thumbnail.Encode(c.Writer, thumbnail.Render(img, opts)); err != nil {
		slog.Error("缩略图编码失败", "id", rec.ID, "error", err)
	}
}

func (h *ImportHandler) HandleDeleteImport(c *gin.Context) {
	var rec Import
	if err := h.DB.Where("id = ?", c.Param("id")).First(&rec).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("查询导入记录失败", "id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "查询导入记录失败"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "导入记录不存在"})
		return
	}
	if err := removeImport(h.DB, rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "删除导入记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// removeImport 先删除临时文件，再删除数据库记录
func removeImport(db *gorm.DB, rec Import) error {
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		// 即使文件删除失败，也继续删除数据库记录，避免无限重试
		slog.Error("删除临时文件失败", "path", rec.Path, "error", err)
	}
	if err := db.Delete(&Import{}, "id = ?", rec.ID).Error; err != nil {
		slog.Error("删除导入记录失败", "id", rec.ID, "error", err)
		return err
	}
	return nil
}

func thumbnailOptions(cfg ThumbnailConfig) thumbnail.Options {
	var accent color.Color = thumbnail.DefaultAccent
	if cfg.AccentColor != "" {
		parsed, err := thumbnail.ParseAccent(cfg.AccentColor)
		if err != nil {
			slog.Warn("强调色配置无效，使用默认值", "value", cfg.AccentColor, "error", err)
		} else {
			accent = parsed
		}
	}
	return thumbnail.Options{Size: cfg.Size, BorderWidth: cfg.BorderWidth, Accent: accent}
}
