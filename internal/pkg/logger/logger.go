package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/3Eeeecho/go-docflow/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// InitLogger 初始化 Zap 日志库
// cfg.OutputPath: 日志文件路径，例如 "logs/app.log"
// cfg.ErrorPath: 错误日志文件路径，例如 "logs/error.log"
// cfg.Level: 日志级别 (debug, info, warn, error, dpanic, panic, fatal)
func InitLogger(cfg config.LogConfig) {
	build(cfg.OutputPath, cfg.ErrorPath, cfg.Level)
}

func build(outputPath, errorPath string, level string) {
	once.Do(func() {
		// 确保日志目录存在，stdout/stderr 不需要
		for _, p := range []string{outputPath, errorPath} {
			if p == "stdout" || p == "stderr" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to create log directory for '%s': %v\n", p, err)
			}
		}

		var l zapcore.Level
		var err error
		if err = l.UnmarshalText([]byte(level)); err != nil {
			l = zap.InfoLevel // 默认 INFO 级别
			fmt.Fprintf(os.Stderr, "Failed to parse log level '%s', defaulting to info: %v\n", level, err)
		}

		// 创建生产环境配置
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(l)
		zcfg.OutputPaths = uniquePaths(outputPath, "stdout")
		zcfg.ErrorOutputPaths = uniquePaths(errorPath, "stderr")
		zcfg.Encoding = "json"
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		log, err = zcfg.Build()
		if err != nil {
			panic(fmt.Sprintf("Failed to build zap logger: %v", err))
		}
		zap.ReplaceGlobals(log)
	})
}

// 返回全局logger
func GetLogger() *zap.Logger {
	if log == nil {
		// 如果在调用 InitLogger 之前调用 GetLogger，则初始化一个默认 logger
		// 生产环境中应确保 InitLogger 在应用启动时被调用
		build("stdout", "stderr", "info")
	}
	return log
}

// Named 返回带组件名的子 logger，例如 logger.Named("index_worker")
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Sugar 返回 Zap 的 SugaredLogger，它提供了更灵活的 API (类似 fmt.Printf)
// 适合性能很好但不是很关键的上下文中
func Sugar() *zap.SugaredLogger {
	return GetLogger().Sugar()
}

// 刷新缓冲区,确保程序退出前使用
func Sync() {
	if log != nil {
		if err := log.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync zap logger: %v\n", err)
		}
	}
}

// 为方便使用，可以封装常用的日志方法
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

func uniquePaths(primary, fallback string) []string {
	if primary == "" || primary == fallback {
		return []string{fallback}
	}
	return []string{primary, fallback}
}
