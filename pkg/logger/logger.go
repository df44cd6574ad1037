// Package logger builds the process-wide *slog.Logger on top of
// charmbracelet/log, optionally teeing into a rotating file.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/limbo/habitsync/pkg/cleanup"
)

type Config struct {
	// debug, info, warn or error
	Level string
	// text, json or logfmt
	Format string
	// File enables rotation into this path in addition to stderr
	File   string
	Prefix string
}

// New returns a logger writing to w and, when cfg.File is set, to a rotating file.
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.New("parsing log level error: " + err.Error())
		}
	}
	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		cleanup.Register(&cleanup.Job{
			Name: "closing log file",
			F:    fileWriter.Close,
		})
		w = io.MultiWriter(w, fileWriter)
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
		Prefix:          cfg.Prefix,
	})
	return slog.New(handler), nil
}

// Init builds a stderr logger from cfg and installs it as the slog default.
func Init(cfg Config) (*slog.Logger, error) {
	logger, err := New(os.Stderr, cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func parseFormat(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, errors.New("unknown log format: " + format)
}
