package main

import (
	"fmt"
	"strings"

	"github.com/lomoval/calendar-helper/internal/geo"
	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/logger"
	"github.com/lomoval/calendar-helper/internal/rabbit"
	internalgrpc "github.com/lomoval/calendar-helper/internal/server/grpc"
	internalhttp "github.com/lomoval/calendar-helper/internal/server/http"
	"github.com/lomoval/calendar-helper/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	HTTPServer internalhttp.Config
	GrpcServer internalgrpc.Config
	Logger     logger.Config
	Storage    storagebuilder.Config
	LLM        LLMConfig
	Pipeline   PipelineConfig
	Export     ExportConfig
	Geo        geo.Config
	ICS        ICSConfig
}

// LLMConfig is shared by the three prompt programs; a program model overrides the default one.
type LLMConfig struct {
	llm.Config `mapstructure:",squash"`
	Models     struct {
		Safety  string
		Events  string
		Address string
	}
}

type PipelineConfig struct {
	DeadlineSeconds      int
	DefaultTimezone      string
	AddressFailurePolicy string
	PromptsFile          string
}

type ExportConfig struct {
	Enabled bool
	Rabbit  rabbit.Config
}

type ICSConfig struct {
	ProductID string
	Footer    string
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("httpServer.host", "127.0.0.1")
	viper.SetDefault("httpServer.port", "8005")
	viper.SetDefault("httpServer.uploads.maxImageSize", 4*1024*1024)
	viper.SetDefault("httpServer.uploads.maxImages", 5)
	viper.SetDefault("grpcServer.host", "127.0.0.1")
	viper.SetDefault("grpcServer.port", "8006")
	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("storage.storageType", "memory")
	viper.SetDefault("storage.connectTimeoutSeconds", 15)
	viper.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.timeoutSeconds", 60)
	viper.SetDefault("pipeline.deadlineSeconds", 120)
	viper.SetDefault("pipeline.defaultTimezone", "UTC")
	viper.SetDefault("pipeline.addressFailurePolicy", "abort")
	viper.SetDefault("export.enabled", false)
	viper.SetDefault("export.rabbit.host", "127.0.0.1")
	viper.SetDefault("export.rabbit.port", "5672")
	viper.SetDefault("export.rabbit.queue", "calendar.events")
	viper.SetDefault("geo.enabled", false)
	viper.SetDefault("geo.timeoutSeconds", 3)

	err := viper.ReadInConfig()
	if err != nil {
		return config, fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	keys := viper.AllKeys()
	for _, key := range keys {
		env := viper.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			err := viper.BindEnv(key, env[len(envConfigPrefix):])
			if err != nil {
				return Config{}, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}

func (c LLMConfig) program(model string) llm.Config {
	config := c.Config
	if model != "" {
		config.Model = model
	}
	return config
}
