package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"audioscribe/internal/config"
)

type Logger struct {
	*logrus.Entry
}

// New builds a logger from config. Text format is meant for local runs,
// anything else logs JSON.
func New(cfg config.LogConfig) *Logger {
	base := logrus.New()

	if cfg.Format == "" || cfg.Format == "text" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	base.SetOutput(output(cfg.File))

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	return &Logger{Entry: logrus.NewEntry(base).WithField("service", "audioscribe")}
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{Entry: logrus.NewEntry(base)}
}

// Component returns an entry tagged with a component name.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithField("component", name)
}

func output(file string) io.Writer {
	if file == "" {
		return os.Stdout
	}
	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotated)
}
