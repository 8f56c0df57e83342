package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	ENTRY_BACKEND_FILE = "file"
	ENTRY_BACKEND_S3   = "s3"
)

type Config struct {
	LogLevel zapcore.Level
	Blueair  BlueairConfig `mapstructure:"blueair"`
	Entry    EntryConfig   `mapstructure:"entry"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

type BlueairConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// Username and Password seed the config flow of the setup command.
	Username             string
	Password             string
	Workers              int
	UpdateIntervalMillis uint32 `mapstructure:"update_interval_millis"`
	UpdateTimeoutMillis  uint32 `mapstructure:"update_timeout_millis"`
}

type EntryConfig struct {
	Backend string
	Path    string
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint      string
	Bucket        string
	Prefix        string
	Region        string
	AccessKeyFile string `mapstructure:"access_key_file"`
	SecretKeyFile string `mapstructure:"secret_key_file"`
}

type MQTTConfig struct {
	Host                        string
	Port                        int
	Username                    string
	Password                    string
	BaseTopic                   string `mapstructure:"base_topic"`
	HADiscoveryEnable           bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic            string `mapstructure:"ha_discovery_topic"`
	HADiscoveryRepublishSeconds uint32 `mapstructure:"ha_discovery_republish_seconds"`
}

func (c BlueairConfig) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMillis) * time.Millisecond
}

func (c BlueairConfig) UpdateTimeout() time.Duration {
	return time.Duration(c.UpdateTimeoutMillis) * time.Millisecond
}

var topicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	matches := topicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Validate fixes the MQTT topics and checks the bounds of the polling
// parameters.
func (c *Config) Validate() error {
	baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	c.MQTT.BaseTopic = baseTopic

	hadBaseTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	c.MQTT.HADiscoveryTopic = hadBaseTopic

	if c.Blueair.UpdateIntervalMillis < 1000 {
		return errors.New("config param blueair.update_interval_millis should be >= 1000")
	}
	if c.Blueair.UpdateTimeoutMillis < 1000 {
		return errors.New("config param blueair.update_timeout_millis should be >= 1000")
	}
	if c.Blueair.UpdateTimeoutMillis >= c.Blueair.UpdateIntervalMillis {
		return errors.New("config param blueair.update_timeout_millis must be < blueair.update_interval_millis")
	}
	if c.Blueair.Workers < 1 {
		return errors.New("config param blueair.workers should be >= 1")
	}
	switch c.Entry.Backend {
	case ENTRY_BACKEND_FILE:
		if c.Entry.Path == "" {
			return errors.New("config param entry.path is required for the file backend")
		}
	case ENTRY_BACKEND_S3:
		if c.Entry.S3.Endpoint == "" || c.Entry.S3.Bucket == "" {
			return errors.New("config params entry.s3.endpoint and entry.s3.bucket are required for the s3 backend")
		}
	default:
		return errors.New("config param entry.backend must be one of: file, s3")
	}
	return nil
}
