package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lomoval/calendar-helper/internal/logger"
	"github.com/lomoval/calendar-helper/internal/storage"
	"github.com/lomoval/calendar-helper/internal/storagebuilder"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var configFile string

const removeTimeout = time.Minute

func init() {
	flag.StringVar(&configFile, "config", "./configs/scheduler_config.yaml", "Path to configuration file")
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

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		stor.Close(ctx)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	c := cron.New()
	_, err = c.AddFunc(config.Schedule, func() {
		if _, err := expireSessions(ctx, stor, config.SessionTTL, time.Now); err != nil {
			log.Errorf("failed to remove expired sessions: %v", err)
		}
	})
	if err != nil {
		log.Errorf("incorrect schedule %q: %v", config.Schedule, err)
		return
	}
	c.Start()
	log.Infof("session expiry scheduled with %q, ttl %s", config.Schedule, config.SessionTTL)

	<-ctx.Done()
	<-c.Stop().Done()
}

// expireSessions removes sessions idle for longer than ttl.
func expireSessions(ctx context.Context, stor storage.Storage, ttl time.Duration, now func() time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	before := now().Add(-ttl)
	removed, err := stor.RemoveExpired(ctx, before)
	if err != nil {
		return 0, err
	}
	log.Debugf("removed %d sessions updated before %s", removed, before)
	return removed, nil
}
