package cmd

import (
	"context"
	"fmt"

	"StemShare/config"
	"StemShare/core/upload"
	"StemShare/logger"
	"StemShare/server"
	"StemShare/storage"
)

// initCLILogger 命令行工具默认只输出警告以上的日志
func initCLILogger(cfg *config.Config, verbose bool) {
	level := "warn"
	if verbose {
		level = cfg.LogLevel
	}
	if err := logger.InitLogger(logger.Config{Level: level}); err != nil {
		fmt.Println("初始化日志失败:", err)
	}
}

// newUploader 连接元数据库和对象存储，返回上传编排器
func newUploader(ctx context.Context, cfg *config.Config) (*upload.Orchestrator, func(), error) {
	tracks, closeDeps, err := server.Dependencies(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		closeDeps()
		return nil, nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		closeDeps()
		return nil, nil, err
	}
	return upload.NewOrchestrator(store, tracks), closeDeps, nil
}

// cliOrigin 分享链接使用的站点地址
func cliOrigin(cfg *config.Config, flag string) string {
	switch {
	case flag != "":
		return flag
	case cfg.PublicOrigin != "":
		return cfg.PublicOrigin
	default:
		return "http://localhost" + cfg.HTTPAddr
	}
}
