package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/lomoval/calendar-helper/internal/ics"
	"github.com/lomoval/calendar-helper/internal/logger"
	"github.com/lomoval/calendar-helper/internal/rabbit"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/sender_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	r := rabbit.New(config.Rabbit)
	if err := r.Connect(); err != nil {
		log.Errorf("failed to connect to rabbit: %v", err)
		return
	}
	defer r.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	opts := ics.Options{ProductID: config.ICS.ProductID, Footer: config.ICS.Footer}
	err = r.Consume(ctx, func(m rabbit.Message) error {
		path, err := writeCalendar(config.OutputDir, m, opts)
		if err != nil {
			return err
		}
		log.WithField("session", m.SessionID).Infof("exported %d events to %s", len(m.Events), path)
		return nil
	})
	if err != nil {
		log.Errorf("failed to consume events: %v", err)
	}
}

// writeCalendar replaces <dir>/<session>.ics with the events of m.
func writeCalendar(dir string, m rabbit.Message, opts ics.Options) (string, error) {
	id, err := uuid.Parse(m.SessionID)
	if err != nil {
		return "", fmt.Errorf("session %q: %w", m.SessionID, storage.ErrIncorrectSession)
	}
	content, err := ics.Generate(m.Events, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, id.String()+".ics")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return path, nil
}
