package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 是日志构造参数。
//
// 日志一律写 stderr（或 Writer）：stdout 留给报告 JSON。
type Options struct {
	Level  string // debug/info/warn/error，非法值按 info
	Format string // console/json，默认 console
	Writer io.Writer
}

// New 构造 zap logger。
func New(opts Options) (*zap.Logger, error) {
	level := ParseLevel(opts.Level)

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	zopts := []zap.Option{}
	if level <= zapcore.DebugLevel {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...), nil
}

// NewNop 返回丢弃所有输出的 logger。
func NewNop() *zap.Logger { return zap.NewNop() }

// ParseLevel 解析日志级别；空串或非法值返回 info。
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil || strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel
	}
	return l
}

// ValidFormat 判断日志格式是否受支持（空串视为默认 console）。
func ValidFormat(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "console", "json":
		return true
	default:
		return false
	}
}
