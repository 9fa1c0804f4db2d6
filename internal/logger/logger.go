package logger

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	Level  string
	File   string
	Format string
}

// PrepareLogger configures the global logrus logger. An empty File keeps stdout.
func PrepareLogger(config Config) error {
	level, err := log.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("incorrect log level %q: %w", config.Level, err)
	}
	log.SetLevel(level)

	switch config.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}

	if config.File == "" {
		log.SetOutput(os.Stdout)
		return nil
	}
	f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", config.File, err)
	}
	log.SetOutput(f)
	return nil
}
