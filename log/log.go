package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process wide logger. It discards everything until
// InitLogger runs.
var Logger = zap.NewNop()

type Config struct {
	Level  string // debug, info, warn or error
	Format string // console or json
}

// Validate checks the level and format without building a logger.
func (cfg Config) Validate() error {
	if _, err := cfg.level(); err != nil {
		return err
	}
	switch strings.ToLower(cfg.Format) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("log format %q: want console or json", cfg.Format)
	}
}

func (cfg Config) level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return level, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	return level, nil
}

// NewLogger builds a logger writing to stderr.
func NewLogger(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := cfg.level()

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(time.RFC3339))
	}

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if isatty.IsTerminal(os.Stderr.Fd()) {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	case "json":
		config.Encoding = "json"
	}

	return config.Build()
}

// InitLogger replaces Logger with one built from cfg.
func InitLogger(cfg Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}
