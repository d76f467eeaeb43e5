// Package logging 构建全局共享的 zap 日志器
//
// 各组件通过构造参数接收 *zap.Logger，并用 Named() 标注来源
// （bridge、engine、host ...）。未提供日志器时使用 zap.NewNop()。
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志配置
type Options struct {
	// Verbose 使用开发模式输出（彩色、可读），否则使用 JSON 生产格式
	Verbose bool
	// Level 日志级别：debug / info / warn / error，空字符串时按 Verbose 推断
	Level string
}

// New 根据配置构建日志器
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// OrNop 返回 l，若为 nil 则返回 no-op 日志器
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
