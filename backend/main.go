// backend/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"photoaffix/iomanager"
)

func main() {
	InitLogger()

	cfg, err := LoadConfig("config.json")
	if err != nil {
		slog.Error("加载配置时发生严重错误，程序无法启动", "error", err)
		os.Exit(1)
	}

	// 检查配置是否已初始化，未初始化时只启动仅监听本机的配置服务。
	if !cfg.Initialized {
		runInitializationGuide()
		runSetupMode(cfg)
		return
	}

	resolver, err := BuildResolver(cfg.ContentRoot, cfg.Sources)
	if err != nil {
		slog.Error("内容解析器初始化失败", "error", err)
		os.Exit(1)
	}

	manager, err := iomanager.New(iomanager.Options{
		Root:        cfg.StorageRoot,
		AppName:     cfg.AppName,
		Resolver:    resolver,
		UniqueNames: cfg.UniqueNames,
	})
	if err != nil {
		slog.Error("IoManager 初始化失败", "error", err)
		os.Exit(1)
	}

	db, err := ConnectDatabase(cfg.Database)
	if err != nil {
		slog.Error("数据库初始化失败", "error", err)
		os.Exit(1)
	}

	scanner, err := NewScanner(cfg.ClamdSocket)
	if err != nil {
		slog.Warn("Clamd 扫描器初始化失败，文件扫描功能将不可用。", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动后台清理任务
	go CleanupExpiredImportsTask(ctx, db)

	imports := &ImportHandler{
		DB:              db,
		Manager:         manager,
		Scanner:         scanner,
		TTL:             cfg.GetImportTTL(),
		AllowFileScheme: cfg.AllowFileScheme,
		Thumb:           thumbnailOptions(cfg.Thumbnail),
	}
	router := setupRouter(cfg, imports)

	serverAddr := ":" + cfg.ServerPort
	slog.Info("导入服务准备启动...", "address", "http://localhost"+serverAddr, "tempDir", manager.TempDir(), "database", cfg.Database.Type)

	if err := router.Run(serverAddr); err != nil {
		slog.Error("无法启动 HTTP 服务器", "error", err)
		os.Exit(1)
	}
}

// runInitializationGuide 在配置未初始化时显示引导信息
func runInitializationGuide() {
	fmt.Println("--- PhotoAffix 导入服务 未初始化 ---")
	fmt.Println("检测到这是首次运行或配置尚未完成。")
	fmt.Println("\n请通过环境变量进行配置：")
	fmt.Println("-----------------------------------------------------------------")
	fmt.Println("PHOTOAFFIX_INITIALIZED=true               # 完成配置后，设置为 true 来启动服务")
	fmt.Println("PHOTOAFFIX_SERVERPORT=8080                 # 应用监听的端口")
	fmt.Println("PHOTOAFFIX_STORAGEROOT=data/shared         # 临时文件根目录，文件写入 <根目录>/<AppName>/")
	fmt.Println("PHOTOAFFIX_CONTENTROOT=data/content        # content:// 定位符对应的本地目录")
	fmt.Println("PHOTOAFFIX_DATABASE_TYPE=sqlite            # sqlite | mysql | postgres")
	fmt.Println("PHOTOAFFIX_DATABASE_DSN=data/photoaffix.db   # sqlite 文件需位于 PHOTOAFFIX_DATADIR 之内")
	fmt.Println("\n# (可选) 远程内容来源")
	fmt.Println("PHOTOAFFIX_SOURCES_S3_BUCKET=photos        # 启用 s3://photos/<key>")
	fmt.Println("PHOTOAFFIX_SOURCES_WEBDAV_URL=https://nas.local/dav")
	fmt.Println("PHOTOAFFIX_SOURCES_ALLOWPRIVATEHTTP=false  # 为 true 时 http(s) 定位符可访问内网地址")
	fmt.Println("-----------------------------------------------------------------")
	fmt.Println("\n配置服务已在本机启动，可调用 POST /api/v1/setup/validate 验证配置。")
}

// runSetupMode 只暴露配置接口，直到以 PHOTOAFFIX_INITIALIZED=true 重新启动
func runSetupMode(cfg *Config) {
	// sqlite 验证只接受该目录下的文件
	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		slog.Error("无法创建数据目录", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	setup := &SetupHandler{DataDir: cfg.DataDir, ContentRoot: cfg.ContentRoot}
	router := setupModeRouter(cfg, setup)

	slog.Info("配置服务准备启动...", "address", cfg.SetupAddress, "dataDir", cfg.DataDir)
	if err := router.Run(cfg.SetupAddress); err != nil {
		slog.Error("无法启动配置服务", "error", err)
		os.Exit(1)
	}
}
