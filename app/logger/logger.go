// Package logger builds the structured loggers used across the service
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirphl/Injera-Promo/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// New creates the application logger described by cfg
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	return build(cfg, cfg.Output, cfg.FilePath)
}

// NewFileLogger creates a logger that writes to its own rotated file at path, and to
// stdout as well when cfg.Output asks for it. Used by background workers.
func NewFileLogger(cfg config.LoggingConfig, path string) (*logrus.Logger, error) {
	output := "file"
	if cfg.Output == "stdout" || cfg.Output == "both" {
		output = "both"
	}
	return build(cfg, output, path)
}

func build(cfg config.LoggingConfig, output, path string) (*logrus.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	var writers []io.Writer
	if output == "file" || output == "both" {
		if path == "" {
			return nil, fmt.Errorf("log file path is required for output %q", output)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		})
	}
	if output == "" || output == "stdout" || output == "both" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))

	return l, nil
}
