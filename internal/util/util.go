package util

import (
	"github.com/berfenger/blueair2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Blueair: config.BlueairConfig{
			Username:             "user@example.com",
			Password:             "secret",
			Workers:              2,
			UpdateIntervalMillis: 60000,
			UpdateTimeoutMillis:  10000,
		},
		Entry: config.EntryConfig{
			Backend: config.ENTRY_BACKEND_FILE,
			Path:    "entry.yaml",
		},
		MQTT: config.MQTTConfig{
			Host:                        "localhost",
			Port:                        1883,
			BaseTopic:                   "blueair",
			HADiscoveryEnable:           true,
			HADiscoveryTopic:            "homeassistant",
			HADiscoveryRepublishSeconds: 0,
		},
		Port: 8080,
	}
}
