package mqtt

import (
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device                 HADiscoveryDevice         `json:"device"`
	StateTopic             string                    `json:"state_topic,omitempty"`
	CommandTopic           string                    `json:"command_topic,omitempty"`
	StateClass             string                    `json:"state_class,omitempty"`
	DeviceClass            string                    `json:"device_class,omitempty"`
	UnitOfMeasurement      string                    `json:"unit_of_measurement,omitempty"`
	Availability           []HADiscoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode       string                    `json:"availability_mode,omitempty"`
	EntityCategory         string                    `json:"entity_category,omitempty"`
	Name                   string                    `json:"name"`
	UniqueId               string                    `json:"unique_id"`
	DefaultEntityId        string                    `json:"default_entity_id,omitempty"`
	Platform               string                    `json:"platform"`
	EnabledByDefault       *bool                     `json:"enabled_by_default,omitempty"`
	PayloadOn              string                    `json:"payload_on,omitempty"`
	PayloadOff             string                    `json:"payload_off,omitempty"`
	StateOn                string                    `json:"state_on,omitempty"`
	StateOff               string                    `json:"state_off,omitempty"`
	Icon                   string                    `json:"icon,omitempty"`
	Min                    *float64                  `json:"min,omitempty"`
	Max                    *float64                  `json:"max,omitempty"`
	Step                   float64                   `json:"step,omitempty"`
	Mode                   string                    `json:"mode,omitempty"`
	PercentageStateTopic   string                    `json:"percentage_state_topic,omitempty"`
	PercentageCommandTopic string                    `json:"percentage_command_topic,omitempty"`
	PresetModeStateTopic   string                    `json:"preset_mode_state_topic,omitempty"`
	PresetModeCommandTopic string                    `json:"preset_mode_command_topic,omitempty"`
	PresetModes            []string                  `json:"preset_modes,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string    `json:"identifiers"`
	Connections  [][2]string `json:"connections,omitempty"`
	Manufacturer string      `json:"manufacturer,omitempty"`
	Version      string      `json:"sw_version,omitempty"`
	Model        string      `json:"model,omitempty"`
	Name         string      `json:"name,omitempty"`
	ViaDevice    string      `json:"via_device,omitempty"`
}

type HADiscoveryAvailability struct {
	Topic string `json:"topic"`
}

func HADiscoverySensorTopic(client *MQTTClient, sensor domain.GenericSensor) string {
	return client.HADiscoveryTopic(sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func HADiscoverySwitchTopic(client *MQTTClient, sensor domain.GenericSwitch) string {
	return client.HADiscoveryTopic(domain.PLATFORM_SWITCH, sensor.Device.Id, sensor.Id)
}

func HADiscoveryInputNumberTopic(client *MQTTClient, sensor domain.GenericInputNumber) string {
	return client.HADiscoveryTopic(domain.PLATFORM_NUMBER, sensor.Device.Id, sensor.Id)
}

func HADiscoveryFanTopic(client *MQTTClient, fan domain.GenericFan) string {
	return client.HADiscoveryTopic(domain.PLATFORM_FAN, fan.Device.Id, fan.Id)
}

func HADiscoveryRemovedTopic(client *MQTTClient, removed domain.RemovedComponent) string {
	return client.HADiscoveryTopic(removed.Platform, removed.DeviceId, removed.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	var topic string
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		topic = client.BridgeStateTopic()
	case sensor.SensorType == domain.PLATFORM_SENSOR:
		topic = client.SensorStateTopic(sensor.Id)
	case sensor.SensorType == domain.PLATFORM_BINARY_SENSOR:
		topic = client.BinarySensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:            device(sensor.Device),
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		DefaultEntityId:   defaultEntityId(sensor.SensorType, sensor.ObjectId),
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
	}
	setAvailability(client, &disConfig, sensor.EntityMixIn)
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
		disConfig.Availability = nil
		disConfig.AvailabilityMode = ""
	} else if sensor.SensorType == domain.PLATFORM_BINARY_SENSOR {
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
	}
	return disConfig
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, _switch domain.GenericSwitch) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:          device(_switch.Device),
		StateTopic:      client.SwitchStateTopic(_switch.Id),
		CommandTopic:    client.SwitchCommandTopic(_switch.Id),
		DeviceClass:     _switch.DeviceClass,
		Name:            _switch.Name,
		UniqueId:        _switch.UniqueId,
		DefaultEntityId: defaultEntityId(domain.PLATFORM_SWITCH, _switch.ObjectId),
		Icon:            _switch.Icon,
		Platform:        "mqtt",
		PayloadOn:       MQTT_PAYLOAD_ON,
		PayloadOff:      MQTT_PAYLOAD_OFF,
	}
	setAvailability(client, &disConfig, _switch.EntityMixIn)
	return disConfig
}

func GenericInputNumberToHADiscoveryMessage(client *MQTTClient, inputNumber domain.GenericInputNumber) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:          device(inputNumber.Device),
		StateTopic:      client.InputNumberStateTopic(inputNumber.Id),
		CommandTopic:    client.InputNumberCommandTopic(inputNumber.Id),
		Name:            inputNumber.Name,
		UniqueId:        inputNumber.UniqueId,
		DefaultEntityId: defaultEntityId(domain.PLATFORM_NUMBER, inputNumber.ObjectId),
		Icon:            inputNumber.Icon,
		Platform:        "mqtt",
		Min:             &inputNumber.Min,
		Max:             &inputNumber.Max,
		Step:            inputNumber.Step,
		Mode:            inputNumber.Mode,
	}
	setAvailability(client, &disConfig, inputNumber.EntityMixIn)
	return disConfig
}

func GenericFanToHADiscoveryMessage(client *MQTTClient, fan domain.GenericFan) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:                 device(fan.Device),
		StateTopic:             client.FanStateTopic(fan.Id),
		CommandTopic:           client.FanCommandTopic(fan.Id),
		PercentageStateTopic:   client.FanPercentageStateTopic(fan.Id),
		PercentageCommandTopic: client.FanPercentageCommandTopic(fan.Id),
		Name:                   fan.Name,
		UniqueId:               fan.UniqueId,
		DefaultEntityId:        defaultEntityId(domain.PLATFORM_FAN, fan.ObjectId),
		Icon:                   fan.Icon,
		Platform:               "mqtt",
		PayloadOn:              MQTT_PAYLOAD_ON,
		PayloadOff:             MQTT_PAYLOAD_OFF,
	}
	if len(fan.PresetModes) > 0 {
		disConfig.PresetModeStateTopic = client.FanPresetModeStateTopic(fan.Id)
		disConfig.PresetModeCommandTopic = client.FanPresetModeCommandTopic(fan.Id)
		disConfig.PresetModes = fan.PresetModes
	}
	setAvailability(client, &disConfig, fan.EntityMixIn)
	return disConfig
}

func setAvailability(client *MQTTClient, disConfig *HADiscoveryConfig, entity domain.EntityMixIn) {
	disConfig.Availability = []HADiscoveryAvailability{{Topic: client.BridgeStateTopic()}}
	if entity.AvailabilityId != "" {
		disConfig.Availability = append(disConfig.Availability, HADiscoveryAvailability{
			Topic: client.DeviceAvailabilityTopic(entity.AvailabilityId),
		})
		disConfig.AvailabilityMode = "all"
	}
}

func defaultEntityId(platform, objectId string) string {
	if objectId == "" {
		return ""
	}
	return platform + "." + objectId
}

func device(d domain.Device) HADiscoveryDevice {
	dev := HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
	if d.MAC != "" {
		dev.Connections = [][2]string{{"mac", d.MAC}}
	}
	return dev
}
