package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"mission-planner/internal/config"
)

// Log is the process-wide logger. It is a no-op until Init is called, so
// packages and tests can log unconditionally.
var Log = zap.NewNop()

// Init builds the console core (stderr) and, when a log file is configured,
// a rotating JSON file core, then installs the result as Log.
func Init(cfg config.LoggerConfig) (*zap.Logger, error) {
	l, err := New(cfg, zapcore.Lock(os.Stderr))
	if err != nil {
		return nil, err
	}
	Log = l
	Log.Debug("Logger initialized.", zap.String("log_file", cfg.LogFile))
	return l, nil
}

// New builds a logger writing console output to w. It does not touch Log.
func New(cfg config.LoggerConfig, w zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logger: bad level %q: %w", cfg.Level, err)
		}
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(cfg.Format), w, level)}
	if cfg.LogFile != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(encoder("json"), file, level))
	}

	opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller())
	}
	l := zap.New(zapcore.NewTee(cores...), opts...)
	if cfg.ServiceName != "" {
		l = l.Named(cfg.ServiceName)
	}
	return l, nil
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if strings.EqualFold(format, "console") {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

// Sync flushes buffered entries, ignoring the errors stdout/stderr return on
// some platforms.
func Sync() {
	if err := Log.Sync(); err != nil {
		msg := err.Error()
		if !strings.Contains(msg, "sync /dev/std") &&
			!strings.Contains(msg, "invalid argument") &&
			!strings.Contains(msg, "inappropriate ioctl") {
			fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
		}
	}
}
