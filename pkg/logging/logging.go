// Package logging 基于zap的日志初始化
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 按日志级别与运行环境创建Logger
// env为prod/production时输出JSON，其余环境输出便于阅读的控制台格式
func New(level, env string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("日志级别无效: %w", err)
	}

	var cfg zap.Config
	switch env {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("创建日志失败: %w", err)
	}
	return logger, nil
}

// MustNew 与New相同，出错时panic，供main函数使用
func MustNew(level, env string) *zap.Logger {
	logger, err := New(level, env)
	if err != nil {
		panic(err)
	}
	return logger
}
