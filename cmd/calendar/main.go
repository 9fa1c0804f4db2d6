package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lomoval/calendar-helper/internal/app"
	"github.com/lomoval/calendar-helper/internal/geo"
	"github.com/lomoval/calendar-helper/internal/ics"
	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/logger"
	"github.com/lomoval/calendar-helper/internal/metrics"
	"github.com/lomoval/calendar-helper/internal/pipeline"
	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/rabbit"
	internalgrpc "github.com/lomoval/calendar-helper/internal/server/grpc"
	internalhttp "github.com/lomoval/calendar-helper/internal/server/http"
	"github.com/lomoval/calendar-helper/internal/storagebuilder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	if flag.Arg(0) == "version" {
		printVersion()
		return
	}

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
	templates, err := prompts.Load(config.Pipeline.PromptsFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	p := pipeline.New(pipeline.Clients{
		Safety:  llm.NewOpenAIClient(config.LLM.program(config.LLM.Models.Safety)),
		Events:  llm.NewOpenAIClient(config.LLM.program(config.LLM.Models.Events)),
		Address: llm.NewOpenAIClient(config.LLM.program(config.LLM.Models.Address)),
	}, pipeline.Config{
		Templates:            templates,
		Deadline:             time.Duration(config.Pipeline.DeadlineSeconds) * time.Second,
		DefaultTimezone:      config.Pipeline.DefaultTimezone,
		AddressFailurePolicy: pipeline.FailurePolicy(config.Pipeline.AddressFailurePolicy),
		Metrics:              m,
	})

	opts := app.Options{ICS: ics.Options{ProductID: config.ICS.ProductID, Footer: config.ICS.Footer}}
	if opts.ICS.Footer == "" {
		opts.ICS.Footer = ics.DefaultFooter
	}
	if config.Geo.Enabled {
		opts.Locator = geo.New(config.Geo)
	}
	if config.Export.Enabled {
		r := rabbit.New(config.Export.Rabbit)
		if err := r.Connect(); err != nil {
			log.Errorf("failed to connect to rabbit, events are not exported: %v", err)
		} else {
			defer r.Close()
			opts.Publisher = r
		}
	}

	calendar := app.New(p, stor, opts)
	httpServer := internalhttp.NewServer(config.HTTPServer, calendar, release, reg)
	grpcServer := internalgrpc.NewServer(config.GrpcServer, calendar, internalgrpc.Info{
		Version:      release,
		MaxImageSize: config.HTTPServer.Uploads.MaxImageSize,
		MaxImages:    config.HTTPServer.Uploads.MaxImages,
	})

	grpcServer.Register()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()

		if err := httpServer.Stop(ctx); err != nil {
			log.Error("failed to stop http server: " + err.Error())
		}
		if err := grpcServer.Stop(ctx); err != nil {
			log.Error("failed to stop grpc server: " + err.Error())
		}
	}()

	go func() {
		if err := grpcServer.Start(ctx); err != nil {
			log.Error("failed to start grpc server: " + err.Error())
			cancel()
		}
	}()

	log.Info("calendar helper is running...")

	if err := httpServer.Start(ctx, nil); err != nil {
		log.Error("failed to start http server: " + err.Error())
		cancel()
		closeStorage(stor)
		os.Exit(1) //nolint:gocritic
	}
	closeStorage(stor)
}

func closeStorage(stor interface{ Close(context.Context) error }) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if err := stor.Close(ctx); err != nil {
		log.Errorf("failed to close storage: %v", err)
	}
}
