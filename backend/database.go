// backend/database.go
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ScanStatusPending  = "pending"
	ScanStatusClean    = "clean"
	ScanStatusInfected = "infected"
	ScanStatusError    = "error"
	ScanStatusSkipped  = "skipped"
)

// Import 记录一次定位符落地，Path 为落地后的临时文件
type Import struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Locator    string    `gorm:"size:2048" json:"locator"`
	Scheme     string    `gorm:"size:32;index" json:"scheme"`
	Path       string    `gorm:"size:1024" json:"path"`
	Extension  string    `gorm:"size:16" json:"extension"`
	SizeBytes  int64     `gorm:"not null" json:"sizeBytes"`
	ScanStatus string    `gorm:"default:'pending';index" json:"scanStatus"`
	ScanResult string    `gorm:"size:255" json:"scanResult"`
	ExpiresAt  time.Time `gorm:"index" json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// --- 数据库连接 ---

// OpenDatabase 只建立连接，不创建目录也不迁移表结构
func OpenDatabase(config DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	dbType := strings.ToLower(config.Type)
	dsn := config.DSN

	switch dbType {
	case "sqlite":
		// 开启 WAL 模式
		dialector = sqlite.Open(dsn + "?_journal_mode=WAL")
	case "mysql":
		// 示例 DSN: "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
		dialector = mysql.Open(dsn)
	case "postgres":
		// 示例 DSN: "host=localhost user=gorm password=gorm dbname=gorm port=5432 sslmode=disable"
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库 (%s): %w", dbType, err)
	}
	return db, nil
}

// ConnectDatabase 打开数据库并迁移 Import 表；sqlite 的目录会被自动创建
func ConnectDatabase(config DBConfig) (*gorm.DB, error) {
	if strings.EqualFold(config.Type, "sqlite") {
		if dir := filepath.Dir(config.DSN); dir != "." {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, fmt.Errorf("无法创建数据库目录 %s: %w", dir, err)
			}
		}
	}

	db, err := OpenDatabase(config)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Import{}); err != nil {
		return nil, fmt.Errorf("无法迁移数据库: %w", err)
	}

	slog.Info("成功连接到数据库", "type", strings.ToLower(config.Type))
	return db, nil
}

// sqlitePathWithin 报告 sqlite DSN 指向的文件是否位于 dir 之内
func sqlitePathWithin(dir, dsn string) bool {
	if dir == "" || dsn == "" || strings.Contains(dsn, "?") || strings.HasPrefix(dsn, "file:") {
		return false
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	target, err := filepath.Abs(dsn)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
