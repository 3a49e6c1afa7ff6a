package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a rotated JSON logger writing to logDir/hydraping.log.
// The dashboard owns the terminal, so this is the only place probe and
// scheduler events go; nothing here ever writes to stdout/stderr while
// the render loop is active.
func NewLogger(logDir string, debug bool) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "hydraping.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level)
	return zap.New(core), nil
}

// DefaultLogDir returns "~/.config/hydraping".
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "hydraping")
	}
	return filepath.Join(home, ".config", "hydraping")
}
