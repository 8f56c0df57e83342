package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/entry"
	"github.com/berfenger/blueair2mqtt/pkg/blueair"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func initConfig() (*config.Config, error) {

	// alias PORT => BLUEAIR_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("BLUEAIR_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("blueair")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
	viper.SetDefault("blueair.api_key", "")
	viper.SetDefault("blueair.base_url", blueair.DefaultBaseURL)
	viper.SetDefault("blueair.username", "")
	viper.SetDefault("blueair.password", "")
	viper.SetDefault("blueair.workers", 2)
	viper.SetDefault("blueair.update_interval_millis", 60000)
	viper.SetDefault("blueair.update_timeout_millis", 10000)
	viper.SetDefault("entry.backend", config.ENTRY_BACKEND_FILE)
	viper.SetDefault("entry.path", entry.ENTRY_OBJECT_NAME)
	viper.SetDefault("entry.s3.endpoint", "")
	viper.SetDefault("entry.s3.bucket", "")
	viper.SetDefault("entry.s3.prefix", "")
	viper.SetDefault("entry.s3.region", "")
	viper.SetDefault("entry.s3.access_key_file", "")
	viper.SetDefault("entry.s3.secret_key_file", "")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.base_topic", "blueair")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mqtt.ha_discovery_republish_seconds", 0)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Blueair.APIKey = "*redacted*"
	cfg.Blueair.Username = "*redacted*"
	cfg.Blueair.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}

func newLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zap.Must(zapCfg.Build())
}

func newBlueairClient(cfg *config.Config, logger *zap.Logger) *blueair.RestClient {
	return blueair.NewRestClient(blueair.RestClientOptions{
		BaseURL: cfg.Blueair.BaseURL,
		APIKey:  cfg.Blueair.APIKey,
		Timeout: cfg.Blueair.UpdateTimeout(),
	}, logger)
}
