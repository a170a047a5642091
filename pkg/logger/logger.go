package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global structured logger. Packages that want typed fields use
// Log directly (logger.Log.Info("session_saved", zap.String("id", id)));
// the package-level helpers below cover key/value call sites.
var Log = zap.NewNop()

var sugar = Log.Sugar()

// Init initializes the global logger. The level argument wins when
// non-empty, otherwise FILLSESSION_LOG_LEVEL is consulted. The sink may be
// redirected to a file via FILLSESSION_LOG_SINK=file:/path/to/log.
func Init(level string) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("FILLSESSION_LOG_LEVEL")))
	}
	var zl zapcore.Level
	switch lvl {
	case "debug":
		zl = zapcore.DebugLevel
	case "warn", "warning":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	default:
		zl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stdout"}
	if sink := os.Getenv("FILLSESSION_LOG_SINK"); strings.HasPrefix(sink, "file:") {
		cfg.OutputPaths = []string{strings.TrimPrefix(sink, "file:")}
	}
	l, err := cfg.Build()
	if err != nil {
		// never run without a logger
		l = zap.NewExample()
	}
	Log = l
	sugar = l.Sugar()
}

func Debug(msg string, kv ...interface{}) { sugar.Debugw(msg, kv...) }
func Info(msg string, kv ...interface{})  { sugar.Infow(msg, kv...) }
func Warn(msg string, kv ...interface{})  { sugar.Warnw(msg, kv...) }
func Error(msg string, kv ...interface{}) { sugar.Errorw(msg, kv...) }

// Sync flushes buffered log entries; call on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
