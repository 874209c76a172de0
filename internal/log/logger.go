package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/azerpas/bourso-desktop/internal/config"
)

const serviceName = "bourso-dca"

// NewLogger 根据日志配置创建 zap.Logger，并附带服务名与运行环境字段。
// 文件输出目标的父目录不存在时会被创建。
func NewLogger(cfg config.LoggingConfig, environment string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log: 解析日志级别失败: %w", err)
	}

	encoding := strings.ToLower(cfg.Encoding)
	if encoding == "" {
		encoding = "console"
	}
	outputs := withDefault(cfg.OutputPaths, "stderr")
	errOutputs := withDefault(cfg.ErrorOutputPaths, "stderr")
	if err := ensureDirs(append(append([]string{}, outputs...), errOutputs...)); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"service": serviceName}
	if environment != "" {
		fields["env"] = environment
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(encoding),
		OutputPaths:       outputs,
		ErrorOutputPaths:  errOutputs,
		InitialFields:     fields,
	}

	logger, err := zapCfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("log: 创建日志实例失败: %w", err)
	}
	return logger, nil
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.NameKey = "logger"
	enc.FunctionKey = zapcore.OmitKey
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	if encoding == "console" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	return enc
}

func withDefault(paths []string, fallback string) []string {
	if len(paths) == 0 {
		return []string{fallback}
	}
	return paths
}

// stdout、stderr 与 URL 形式的目标不需要建目录。
func ensureDirs(paths []string) error {
	for _, p := range paths {
		if p == "stdout" || p == "stderr" || strings.Contains(p, "://") {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("log: 创建日志目录失败: %w", err)
		}
	}
	return nil
}
