package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/calendar-helper/internal/logger"
	"github.com/lomoval/calendar-helper/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	Logger  logger.Config
	Storage storagebuilder.Config
	// Schedule is a cron expression, e.g. "*/5 * * * *" or "@every 5m".
	Schedule   string
	SessionTTL time.Duration
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("storage.storageType", "sql")
	viper.SetDefault("storage.connectTimeoutSeconds", 15)
	viper.SetDefault("schedule", "*/5 * * * *")
	viper.SetDefault("sessionTTL", "24h")

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
				return config, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	if config.SessionTTL <= 0 {
		return config, fmt.Errorf("incorrect session ttl %s", config.SessionTTL)
	}
	return config, nil
}
