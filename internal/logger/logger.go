package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls level, format and where log lines go.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`    // trace, debug, info, warn, error
	Format string `env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, file, both

	Path       string `env:"LOG_PATH" envDefault:"./logs"`
	File       string `env:"LOG_FILE" envDefault:"api.log"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"` // MB
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7"` // days
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	UserIDKey    ctxKey = "user_id"
)

var std = logrus.New()

// Init configures the package logger. It is called once from main before
// anything else logs.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	std = l
	return nil
}

// New builds a logrus logger from cfg.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var writers []io.Writer
	switch strings.ToLower(cfg.Output) {
	case "file":
		w, err := fileWriter(cfg)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	case "both":
		w, err := fileWriter(cfg)
		if err != nil {
			return nil, err
		}
		writers = append(writers, os.Stdout, w)
	default:
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l, nil
}

func fileWriter(cfg Config) (io.Writer, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, cfg.File),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

// L returns the package logger.
func L() *logrus.Logger { return std }

// SetOutput redirects the package logger; tests use it to capture lines.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// WithContext returns an entry tagged with the request and user ids found
// in ctx.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(std)
	if ctx == nil {
		return entry
	}
	if v := ctx.Value(RequestIDKey); v != nil {
		entry = entry.WithField("request_id", v)
	}
	if v := ctx.Value(UserIDKey); v != nil {
		entry = entry.WithField("user_id", v)
	}
	return entry.WithContext(ctx)
}
