package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewProductionLogger creates a JSON logger tagged with the process name
// (server, worker) so that interleaved output can be told apart.
func NewProductionLogger(service string, debugMode bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level(debugMode))

	config.Encoding = "json"
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.DisableStacktrace = false
	if service != "" {
		config.InitialFields = map[string]any{"service": service}
	}

	return config.Build()
}

// NewCLILogger creates a console logger for chorectl. Only warnings and
// errors are shown unless verbose is set.
func NewCLILogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.DisableStacktrace = true
	return config.Build()
}

// Sync flushes any buffered log entries. It is safe to call with a nil logger.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

func level(debugMode bool) zapcore.Level {
	if debugMode {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
