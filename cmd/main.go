package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/3Eeeecho/go-docflow/cmd/server"
	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"go.uber.org/zap"
)

// @title go-docflow API
// @version 1.0
// @description 带版本链和审核流程的文档管理服务
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("main: Failed to load config", zap.Error(err))
	}

	logger.InitLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("main: Starting go-docflow",
		zap.String("mode", cfg.Server.Mode),
		zap.String("database", cfg.Database.Type),
		zap.String("storage", cfg.Storage.Type),
		zap.String("auth", cfg.Auth.Provider))

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("main: Failed to build server", zap.Error(err))
	}

	// SIGINT/SIGTERM 触发优雅关机
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stopChan)

	srv.Run(context.Background(), stopChan)
	logger.Info("main: go-docflow stopped")
}
