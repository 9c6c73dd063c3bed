// Package logger 基于zap的结构化日志
//
// 设计说明：
//  1. 日志级别、格式、输出位置由配置文件log段决定
//  2. New返回的Logger会通过zap.ReplaceGlobals设置为全局Logger，
//     供pkg/response等无法注入依赖的位置使用zap.L()
//  3. 业务拒绝（库存不足、重复借阅）不是错误，不应以Error级别记录
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志配置（与config.LogConfig字段一一对应）
type Options struct {
	Level        string // debug | info | warn | error
	Format       string // console | json
	Output       string // stdout | stderr | /path/to/file
	EnableCaller bool
}

// New 创建Logger并替换zap全局Logger
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", opts.Level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(defaultString(opts.Format, "console")) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("无效的日志格式: %s", opts.Format)
	}

	output := defaultString(opts.Output, "stdout")
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = !opts.EnableCaller
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	zap.ReplaceGlobals(l)
	return l, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
