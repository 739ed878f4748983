// Package logging 基于 zap 构造日志，并适配为 httpclient.Logger 供 core 层注入。
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dnslin/minapp-go/core/httpclient"
)

// Config 日志配置。
type Config struct {
	// Env 为 "prod" 时输出 JSON，其余输出带颜色的控制台格式。
	Env string
	// Level 最低级别：debug、info、warn、error，默认 info。
	Level string
	// Name 写入每条日志的 logger 名称，可为空。
	Name string
}

// New 按配置构造 zap.Logger，构造失败时退回 zap.NewNop。
func New(cfg Config) *zap.Logger {
	level := ParseLevel(cfg.Level)
	var (
		l   *zap.Logger
		err error
	)
	if strings.EqualFold(strings.TrimSpace(cfg.Env), "prod") {
		l, err = buildProd(level)
	} else {
		l, err = buildDev(level)
	}
	if err != nil {
		return zap.NewNop()
	}
	if cfg.Name != "" {
		l = l.Named(cfg.Name)
	}
	return l
}

func buildDev(level zapcore.Level) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build(zap.AddCaller())
}

func buildProd(level zapcore.Level) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zcfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// ParseLevel 解析日志级别，无法识别时返回 info。
func ParseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger 把 zap.SugaredLogger 适配为 httpclient.Logger。
type Logger struct {
	s *zap.SugaredLogger
}

var _ httpclient.Logger = (*Logger)(nil)

// Sugar 包装 zap.Logger，l 为 nil 时返回空实现。调用位置跳过适配层本身。
func Sugar(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debugf 实现 httpclient.Logger。
func (l *Logger) Debugf(format string, args ...any) {
	l.s.Debugf(format, args...)
}

// Errorf 实现 httpclient.Logger。
func (l *Logger) Errorf(format string, args ...any) {
	l.s.Errorf(format, args...)
}

// Infof 供命令行等上层使用。
func (l *Logger) Infof(format string, args ...any) {
	l.s.Infof(format, args...)
}

// Sync 刷新缓冲。
func (l *Logger) Sync() error {
	return l.s.Sync()
}
