// backend/tasks.go
package main

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

const cleanupInterval = 10 * time.Minute

// CleanupExpiredImportsTask 定期删除过期的导入文件与记录，ctx 取消时退出
func CleanupExpiredImportsTask(ctx context.Context, db *gorm.DB) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	// 首次运行前先执行一次
	cleanup(db, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cleanup(db, now)
		}
	}
}

func cleanup(db *gorm.DB, now time.Time) int64 {
	slog.Info("开始执行过期导入清理任务...")

	const batchSize = 100
	var deletedCount int64

	for {
		var expired []Import

		result := db.Select("id", "path").
			Where("expires_at <= ?", now).Limit(batchSize).Find(&expired)
		if result.Error != nil {
			slog.Error("清理任务错误: 查询批次失败", "error", result.Error)
			break
		}
		if len(expired) == 0 {
			break
		}

		failed := 0
		for _, rec := range expired {
			if err := removeImport(db, rec); err != nil {
				failed++
				continue
			}
			slog.Info("已清理过期导入", "id", rec.ID, "path", rec.Path)
			deletedCount++
		}
		// 整批都删不掉时停止，避免死循环
		if failed == len(expired) {
			break
		}
	}

	if deletedCount > 0 {
		slog.Info("本轮清理任务完成", "deletedCount", deletedCount)
	} else {
		slog.Info("清理完成，没有发现新的过期导入。")
	}
	return deletedCount
}
