package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Blueair: BlueairConfig{
			Workers:              2,
			UpdateIntervalMillis: 60000,
			UpdateTimeoutMillis:  10000,
		},
		Entry: EntryConfig{Backend: ENTRY_BACKEND_FILE, Path: "entry.yaml"},
		MQTT:  MQTTConfig{BaseTopic: "BlueAir", HADiscoveryTopic: "homeassistant"},
	}
}

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("Blue_Air2")
	assert.NoError(err)
	assert.Equal("blue_air2", topic)

	_, err = CheckMQTTTopic("blue/air")
	assert.Error(err)
	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func TestValidate(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	assert.NoError(cfg.Validate())
	assert.Equal("blueair", cfg.MQTT.BaseTopic, "topic lowercased")

	cfg = validConfig()
	cfg.Blueair.UpdateIntervalMillis = 500
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.Blueair.UpdateTimeoutMillis = 60000
	assert.Error(cfg.Validate(), "timeout must be below interval")

	cfg = validConfig()
	cfg.Blueair.Workers = 0
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.Entry.Backend = "s3"
	assert.Error(cfg.Validate(), "s3 requires endpoint and bucket")
	cfg.Entry.S3 = S3Config{Endpoint: "localhost:9000", Bucket: "blueair"}
	assert.NoError(cfg.Validate())

	cfg = validConfig()
	cfg.Entry.Backend = "sqlite"
	assert.Error(cfg.Validate())
}
